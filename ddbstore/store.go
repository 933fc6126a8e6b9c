// Package ddbstore provides a localstore.KeyValueStore backed by a DynamoDB table.
//
// Each entry is one item {pk: S, value: S, updated_at: N}. The table needs a
// string partition key named "pk" and no sort key.
package ddbstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"code.byted.org/khicago/localstore"
	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrKey       = "pk"
	attrValue     = "value"
	attrUpdatedAt = "updated_at"

	// DynamoDB rejects BatchWriteItem requests with more than 25 operations.
	maxBatchSize    = 25
	maxBatchRetries = 5

	retryBaseDelay = 50 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithPartition stores every key as partition+key, so several stores can
// share one table. Keys and Clear only see their own partition.
func WithPartition(partition string) Option {
	return func(s *Store) {
		s.partition = partition
	}
}

// Store implements localstore.KeyValueStore on DynamoDB.
type Store struct {
	api       API
	tableName string
	partition string
	sleep     func(ctx context.Context, d time.Duration) error
}

var _ localstore.KeyValueStore = (*Store)(nil)

// New constructs a Store over an existing table.
func New(api API, tableName string, opts ...Option) (*Store, error) {
	if api == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}
	s := &Store{api: api, tableName: tableName, sleep: sleepContext}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: s.partition + key},
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	out, err := s.api.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return "", localstore.ErrNotFound
	}
	value, ok := out.Item[attrValue].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("item %q has no string value attribute", key)
	}
	return value.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	item := s.itemKey(key)
	item[attrValue] = &types.AttributeValueMemberS{Value: value}
	item[attrUpdatedAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)}

	_, err := s.api.PutItem(ctx, &sdk.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem error: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.api.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem error: %w", err)
	}
	return nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	out, err := s.api.GetItem(ctx, &sdk.GetItemInput{
		TableName:            &s.tableName,
		Key:                  s.itemKey(key),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String(attrKey),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem error: %w", err)
	}
	return out.Item != nil, nil
}

// Keys scans the table for every key in this store's partition.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	input := &sdk.ScanInput{
		TableName:            &s.tableName,
		ProjectionExpression: aws.String("#k"),
		ExpressionAttributeNames: map[string]string{
			"#k": attrKey,
		},
		ConsistentRead: aws.Bool(true),
	}
	if s.partition != "" {
		input.FilterExpression = aws.String("begins_with(#k, :p)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: s.partition},
		}
	}

	keys := make([]string, 0)
	paginator := sdk.NewScanPaginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Scan error: %w", err)
		}
		for _, item := range page.Items {
			pk, ok := item[attrKey].(*types.AttributeValueMemberS)
			if !ok || !strings.HasPrefix(pk.Value, s.partition) {
				continue
			}
			keys = append(keys, pk.Value[len(s.partition):])
		}
	}
	return keys, nil
}

// Clear deletes every key in this store's partition in batches of 25.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += maxBatchSize {
		end := min(start+maxBatchSize, len(keys))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: s.itemKey(key)},
			})
		}
		if err := s.batchDelete(ctx, requests); err != nil {
			return err
		}
	}
	return nil
}

// batchDelete resubmits unprocessed items a bounded number of times, backing
// off exponentially between attempts. A cancelled ctx ends the retries.
func (s *Store) batchDelete(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.tableName: requests}
	for attempt := 0; ; attempt++ {
		out, err := s.api.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem error: %w", err)
		}
		if len(out.UnprocessedItems[s.tableName]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
		if attempt == maxBatchRetries {
			break
		}
		if err := s.sleep(ctx, retryDelay(attempt)); err != nil {
			return fmt.Errorf("BatchWriteItem retry: %w", err)
		}
	}
	return fmt.Errorf("BatchWriteItem left %d unprocessed deletes after %d retries",
		len(pending[s.tableName]), maxBatchRetries)
}

// retryDelay is retryBaseDelay*2^attempt plus up to half of that again as
// jitter, capped at retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	d := retryMaxDelay
	if attempt < 16 {
		d = min(retryBaseDelay<<attempt, retryMaxDelay)
	}
	d += rand.N(d/2 + 1)
	return min(d, retryMaxDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
