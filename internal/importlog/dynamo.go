package importlog

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// entries expire after 180 days
	entryTTL = 180 * 24 * time.Hour
	// Recent looks back this many monthly partitions at most
	lookbackMonths = 6
)

// DynamoAPI is the part of the DynamoDB client the log uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// item is the stored shape: one partition per month, sorted by time.
type item struct {
	PK  string `dynamodbav:"PK"`
	SK  string `dynamodbav:"SK"`
	TTL int64  `dynamodbav:"TTL"`
	Entry
}

// DynamoLog writes entries to a DynamoDB table with a PK/SK key schema.
type DynamoLog struct {
	client DynamoAPI
	table  string
}

// NewDynamoLog creates a log on table.
func NewDynamoLog(client DynamoAPI, table string) *DynamoLog {
	return &DynamoLog{client: client, table: table}
}

// NewDynamoLogFromConfig builds the DynamoDB client from an SDK config.
func NewDynamoLogFromConfig(cfg aws.Config, table string) *DynamoLog {
	return NewDynamoLog(dynamodb.NewFromConfig(cfg), table)
}

func partitionKey(t time.Time) string {
	return "IMPORT#" + t.UTC().Format("2006-01")
}

func sortKey(e Entry) string {
	return e.CreatedAt.UTC().Format(time.RFC3339Nano) + "#" + e.ID
}

func (d *DynamoLog) Record(ctx context.Context, e Entry) error {
	e = prepare(e)
	av, err := attributevalue.MarshalMap(item{
		PK:    partitionKey(e.CreatedAt),
		SK:    sortKey(e),
		TTL:   e.CreatedAt.Add(entryTTL).Unix(),
		Entry: e,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal import entry: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put import entry: %w", err)
	}
	return nil
}

// Recent walks monthly partitions backwards from the current month until
// n entries are found.
func (d *DynamoLog) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}
	month := time.Now().UTC()
	var out []Entry
	for i := 0; i < lookbackMonths && len(out) < n; i++ {
		result, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.table),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partitionKey(month)},
			},
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int32(int32(n - len(out))),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query import log: %w", err)
		}
		for _, av := range result.Items {
			var it item
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				return nil, fmt.Errorf("failed to unmarshal import entry: %w", err)
			}
			out = append(out, it.Entry)
		}
		month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	}
	return out, nil
}
