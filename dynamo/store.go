// Package dynamo writes archived records to DynamoDB tables
package dynamo

import (
	"context"
	"fmt"

	"sensor_data_migrator/apperr"
	"sensor_data_migrator/config"
	"sensor_data_migrator/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Archive table names, one per record kind
const (
	SensorDataTable            = "Sensor-Data-Archive"
	DailySensorDataTable       = "Daily-Sensor-Data-Archive"
	PlantScoreTable            = "Plant-Score-Archive"
	PlantTemperatureScoreTable = "Plant-Temperature-Score-Archive"
	PlantHumidityScoreTable    = "Plant-Humidity-Score-Archive"
	PlantLightScoreTable       = "Plant-Light-Score-Archive"
	PlantMoistureScoreTable    = "Plant-Moisture-Score-Archive"
)

var tableNames = map[models.TableKind]string{
	models.TableReadings:         SensorDataTable,
	models.TableDailySummaries:   DailySensorDataTable,
	models.TablePlantScore:       PlantScoreTable,
	models.TableTemperatureScore: PlantTemperatureScoreTable,
	models.TableHumidityScore:    PlantHumidityScoreTable,
	models.TableLightScore:       PlantLightScoreTable,
	models.TableMoistureScore:    PlantMoistureScoreTable,
}

// TableName returns the DynamoDB table that records of kind are written to
func TableName(kind models.TableKind) (string, bool) {
	name, ok := tableNames[kind]
	return name, ok
}

// PutItemAPI is the part of the DynamoDB client the store needs
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Store is an archive store backed by DynamoDB
type Store struct {
	client PutItemAPI
}

// New creates a Store using client
func New(client PutItemAPI) *Store {
	return &Store{client: client}
}

// NewFromConfig builds a DynamoDB client from the archive configuration.
// Without static keys the default AWS credential chain applies.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperr.Config("failed to load AWS configuration: %v", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client), nil
}

// Append writes each record as one item. A failure stops the batch; items
// already written stay written.
func (s *Store) Append(ctx context.Context, kind models.TableKind, records []models.ArchiveRecord) error {
	table, ok := TableName(kind)
	if !ok {
		return apperr.Archive("append", fmt.Errorf("no archive table for %q", kind))
	}

	for i, record := range records {
		item, err := MarshalItem(record)
		if err != nil {
			return apperr.Archive(fmt.Sprintf("encode %s item %d", kind, i), err)
		}
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(table),
			Item:      item,
		})
		if err != nil {
			return apperr.Archive(fmt.Sprintf("put item %d of %d into %s", i+1, len(records), table), err)
		}
	}
	return nil
}

// MarshalItem converts an archive record to DynamoDB attribute values
func MarshalItem(record models.ArchiveRecord) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(record))
	for name, value := range record {
		switch v := value.(type) {
		case nil:
			item[name] = &types.AttributeValueMemberNULL{Value: true}
		case string:
			item[name] = &types.AttributeValueMemberS{Value: v}
		case decimal.Decimal:
			item[name] = &types.AttributeValueMemberN{Value: v.String()}
		case bool:
			item[name] = &types.AttributeValueMemberBOOL{Value: v}
		default:
			return nil, fmt.Errorf("attribute %s: unsupported type %T", name, value)
		}
	}
	return item, nil
}
