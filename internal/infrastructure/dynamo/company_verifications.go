package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jobportal-api/internal/domain"
)

// CompanyVerificationRepo stores company-email challenges.
// PK: request_id. GSIs: account_id-index, status-expires_at-index (expires_at is epoch seconds).
// Status transitions are conditional on the stored status still being pending.
type CompanyVerificationRepo struct {
	client    API
	tableName string
	users     *UserRepo
}

func NewCompanyVerificationRepo(client API, tableName string, users *UserRepo) *CompanyVerificationRepo {
	return &CompanyVerificationRepo{client: client, tableName: tableName, users: users}
}

func (r *CompanyVerificationRepo) Create(ctx context.Context, v *domain.CompanyVerification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal company verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldRequestID},
	})
	if conditionFailed(err) {
		return fmt.Errorf("verification %s already exists: %w", v.RequestID, domain.ErrConflict)
	}
	return err
}

func (r *CompanyVerificationRepo) Get(ctx context.Context, requestID string) (*domain.CompanyVerification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldRequestID, requestID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.CompanyVerification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListPendingByAccount reads through a GSI and is therefore eventually consistent.
func (r *CompanyVerificationRepo) ListPendingByAccount(ctx context.Context, accountID string) ([]domain.CompanyVerification, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexAccount),
		KeyConditionExpression: aws.String("#a = :a"),
		FilterExpression:       aws.String("#s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldAccountID,
			"#s": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a":       &types.AttributeValueMemberS{Value: accountID},
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
		},
	})
}

func (r *CompanyVerificationRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.CompanyVerification, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexStatusExpires),
		KeyConditionExpression: aws.String("#s = :pending AND #e < :now"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#e": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
			":now":     epoch(now),
		},
	})
}

func (r *CompanyVerificationRepo) Expire(ctx context.Context, requestID string, now time.Time) error {
	updatedAt, err := attributevalue.Marshal(now)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldRequestID, requestID),
		UpdateExpression:    aws.String("SET #s = :expired, #u = :now"),
		ConditionExpression: aws.String("#s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#u": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expired": &types.AttributeValueMemberS{Value: domain.VerificationExpired},
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
			":now":     updatedAt,
		},
	})
	if conditionFailed(err) {
		return fmt.Errorf("verification %s is not pending: %w", requestID, domain.ErrConflict)
	}
	return err
}

// Complete settles the request and promotes the account in one transaction.
func (r *CompanyVerificationRepo) Complete(ctx context.Context, requestID string, now time.Time, p domain.Promotion) error {
	stamp, err := attributevalue.Marshal(now)
	if err != nil {
		return err
	}
	promote, err := r.users.promotionUpdate(p, now)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(r.tableName),
				Key:                 strKey(fieldRequestID, requestID),
				UpdateExpression:    aws.String("SET #s = :completed, #c = :stamp, #u = :stamp"),
				ConditionExpression: aws.String("#s = :pending AND #e >= :now"),
				ExpressionAttributeNames: map[string]string{
					"#s": fieldStatus,
					"#c": fieldCompletedAt,
					"#u": fieldUpdatedAt,
					"#e": fieldExpiresAt,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":completed": &types.AttributeValueMemberS{Value: domain.VerificationCompleted},
					":pending":   &types.AttributeValueMemberS{Value: domain.VerificationPending},
					":stamp":     stamp,
					":now":       epoch(now),
				},
			}},
			{Update: promote},
		},
	})
	if transactionConflict(err) {
		return fmt.Errorf("verification %s completed concurrently: %w", requestID, domain.ErrExpiredRequest)
	}
	switch cancelledBy(err) {
	case -1:
		return err
	case 0:
		return fmt.Errorf("verification %s cannot be completed: %w", requestID, domain.ErrExpiredRequest)
	default:
		return fmt.Errorf("account %s: %w", p.AccountID, domain.ErrNotFound)
	}
}

func (r *CompanyVerificationRepo) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.CompanyVerification, error) {
	var out []domain.CompanyVerification
	pages := dynamodb.NewQueryPaginator(r.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.CompanyVerification
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func epoch(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}
