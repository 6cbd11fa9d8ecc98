package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"saas-notes-be/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]dtypes.AttributeValue

var indexSortAttr = map[string]string{
	model.IndexByUser:    model.AttrGSI1SK,
	model.IndexByOrg:     model.AttrGSI2SK,
	model.IndexBySubject: model.AttrGSI3SK,
}

// fakeDynamo understands exactly the expressions the repository writes:
// conjunctions of attribute_exists / attribute_not_exists / equality,
// SET with value or path operands, REMOVE, and single-key index queries.
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]item
	pageSize int
	err      error

	// beforeUpdate runs inside UpdateItem ahead of the condition check,
	// standing in for a concurrent writer.
	beforeUpdate func(f *fakeDynamo)

	tables       map[string]*dynamodb.CreateTableInput
	queryCalls   int
	createTables int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]item{}, tables: map[string]*dynamodb.CreateTableInput{}}
}

func copyItem(in item) item {
	if in == nil {
		return nil
	}
	out := make(item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func str(av dtypes.AttributeValue) (string, bool) {
	s, ok := av.(*dtypes.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func resolve(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func checkCondition(expr *string, names map[string]string, values item, current item) error {
	if expr == nil {
		return nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		ok := false
		switch {
		case strings.HasPrefix(clause, "attribute_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
			_, ok = current[attr]
		case strings.HasPrefix(clause, "attribute_not_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
			_, exists := current[attr]
			ok = !exists
		case strings.Contains(clause, " = "):
			parts := strings.SplitN(clause, " = ", 2)
			have, _ := str(current[resolve(parts[0], names)])
			want, _ := str(values[parts[1]])
			_, present := current[resolve(parts[0], names)]
			ok = present && have == want
		default:
			panic("fake dynamo: unsupported condition " + clause)
		}
		if !ok {
			return &dtypes.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	return nil
}

func applyUpdate(expr string, names map[string]string, values item, target item) {
	setPart, removePart := expr, ""
	if i := strings.Index(expr, " REMOVE "); i >= 0 {
		setPart, removePart = expr[:i], expr[i+len(" REMOVE "):]
	}
	setPart = strings.TrimPrefix(setPart, "SET ")

	for _, assignment := range strings.Split(setPart, ", ") {
		parts := strings.SplitN(assignment, " = ", 2)
		lhs := resolve(parts[0], names)
		if strings.HasPrefix(parts[1], ":") {
			target[lhs] = values[parts[1]]
		} else {
			target[lhs] = target[resolve(parts[1], names)]
		}
	}
	if removePart != "" {
		for _, attr := range strings.Split(removePart, ", ") {
			delete(target, resolve(attr, names))
		}
	}
}

func (f *fakeDynamo) pk(key item) string {
	v, _ := str(key[model.AttrPK])
	return v
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := f.pk(in.Item)
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, f.items[key]); err != nil {
		return nil, err
	}
	f.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(f.items[f.pk(in.Key)])}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(f)
	}
	key := f.pk(in.Key)
	current := f.items[key]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, current); err != nil {
		return nil, err
	}
	next := copyItem(current)
	if next == nil {
		next = copyItem(in.Key)
	}
	applyUpdate(aws.ToString(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, next)
	f.items[key] = next
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(next)}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := f.pk(in.Key)
	current := f.items[key]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, current); err != nil {
		return nil, err
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{Attributes: copyItem(current)}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}

	parts := strings.SplitN(aws.ToString(in.KeyConditionExpression), " = ", 2)
	pkAttr := resolve(parts[0], in.ExpressionAttributeNames)
	want, _ := str(in.ExpressionAttributeValues[parts[1]])
	skAttr, ok := indexSortAttr[aws.ToString(in.IndexName)]
	if !ok {
		return nil, fmt.Errorf("fake dynamo: unknown index %q", aws.ToString(in.IndexName))
	}

	var hits []item
	for _, it := range f.items {
		have, ok := str(it[pkAttr])
		if !ok || have != want {
			continue
		}
		// Items without the sort key are not projected into the index.
		if _, ok := str(it[skAttr]); !ok {
			continue
		}
		hits = append(hits, it)
	}

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(hits, func(i, j int) bool {
		a, _ := str(hits[i][skAttr])
		b, _ := str(hits[j][skAttr])
		if forward {
			return a < b
		}
		return a > b
	})

	if start := in.ExclusiveStartKey; start != nil {
		startPK := f.pk(start)
		for i, it := range hits {
			if f.pk(it) == startPK {
				hits = hits[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	if f.pageSize > 0 && len(hits) > f.pageSize {
		hits = hits[:f.pageSize]
		last := hits[len(hits)-1]
		out.LastEvaluatedKey = item{
			model.AttrPK: last[model.AttrPK],
			pkAttr:       last[pkAttr],
			skAttr:       last[skAttr],
		}
	}
	for _, it := range hits {
		out.Items = append(out.Items, copyItem(it))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.tables[aws.ToString(in.TableName)]
	if !ok {
		return nil, &dtypes.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &dtypes.TableDescription{
		TableName:   def.TableName,
		TableStatus: dtypes.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTables++
	if _, ok := f.tables[aws.ToString(in.TableName)]; ok {
		return nil, &dtypes.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.tables[aws.ToString(in.TableName)] = in
	return &dynamodb.CreateTableOutput{}, nil
}

var (
	_ API      = (*fakeDynamo)(nil)
	_ TableAPI = (*fakeDynamo)(nil)
)
