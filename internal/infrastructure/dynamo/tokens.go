package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-api-nosql/internal/domain"
)

// TokenRepo provides typed DynamoDB operations for the verification
// tokens table. Lookups by (email, code) go through the
// email-code-index GSI.
type TokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTokenRepo(client *dynamodb.Client, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName}
}

// Insert appends a new token record. Duplicate emails or codes are not
// rejected: uniqueness is only enforced on token_id, which the caller
// generates fresh per issuance.
func (r *TokenRepo) Insert(ctx context.Context, t *domain.VerificationToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindByEmailAndCode returns every token matching the exact
// (email, code) pair, oldest first (CreatedAt, then TokenID). The
// caller is expected to have normalized email already. An empty slice
// with a nil error means no match.
func (r *TokenRepo) FindByEmailAndCode(ctx context.Context, email, code string) ([]domain.VerificationToken, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-code-index"),
		KeyConditionExpression: aws.String("#e = :e AND #c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#e": "email",
			"#c": "code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": strAttr(email),
			":c": strAttr(code),
		},
	})
	if err != nil {
		return nil, err
	}
	var tokens []domain.VerificationToken
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tokens); err != nil {
		return nil, err
	}
	// GSI query order is not defined for our access pattern; sort so
	// callers always see the earliest-issued token first.
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
		}
		return tokens[i].TokenID < tokens[j].TokenID
	})
	return tokens, nil
}

// Delete removes a token by id. Deleting a non-existent id is a no-op.
func (r *TokenRepo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_id", tokenID),
	})
	return err
}

// Consume deletes a token only if it still exists, and reports whether
// a record was actually removed. Two concurrent consumers of the same
// token see exactly one true: the condition fails for the loser, so a
// code can never be accepted twice.
func (r *TokenRepo) Consume(ctx context.Context, tokenID string) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_id", tokenID),
		ConditionExpression: aws.String("attribute_exists(token_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindExpired returns every token whose expiry has passed at now.
// Used only by the cleanup sweep, never on the request path.
func (r *TokenRepo) FindExpired(ctx context.Context, now time.Time) ([]domain.VerificationToken, error) {
	var (
		tokens  []domain.VerificationToken
		lastKey map[string]types.AttributeValue
	)
	for {
		input := &dynamodb.ScanInput{
			TableName:                aws.String(r.tableName),
			FilterExpression:         aws.String("#x < :now"),
			ExpressionAttributeNames: map[string]string{"#x": "expires_at"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": numAttr(now.Unix()),
			},
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return tokens, nil
}
