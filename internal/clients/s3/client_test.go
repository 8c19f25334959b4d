package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	objects  map[string]string
	listed   []types.Object
	getErr   error
	lastGet  *s3.GetObjectInput
	lastList *s3.ListObjectsV2Input
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGet = params
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeObjectAPI) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lastList = params
	return &s3.ListObjectsV2Output{Contents: f.listed}, nil
}

func TestDatasetSource_Fetch(t *testing.T) {
	api := &fakeObjectAPI{objects: map[string]string{
		"banks/2024.csv": "Transparency,Board_Independence,Audit_Committee,Risk_Committee,Shareholder_Rights\n6,5,7,4,6\n",
	}}
	source := NewDatasetSource(api, "governance-data", zerolog.Nop())

	table, err := source.Fetch(context.Background(), "/banks/2024.csv")
	require.NoError(t, err)

	assert.Equal(t, "governance-data", aws.ToString(api.lastGet.Bucket))
	assert.Equal(t, "banks/2024.csv", aws.ToString(api.lastGet.Key))
	assert.Len(t, table.Columns, 5)
	assert.Equal(t, [][]string{{"6", "5", "7", "4", "6"}}, table.Rows)
}

func TestDatasetSource_FetchErrors(t *testing.T) {
	source := NewDatasetSource(&fakeObjectAPI{objects: map[string]string{}}, "b", zerolog.Nop())

	_, err := source.Fetch(context.Background(), "missing.csv")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = source.Fetch(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	boom := errors.New("connection reset")
	source = NewDatasetSource(&fakeObjectAPI{getErr: boom}, "b", zerolog.Nop())
	_, err = source.Fetch(context.Background(), "x.csv")
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, domain.KindOf(err))
}

func TestDatasetSource_FetchTooLarge(t *testing.T) {
	big := "Transparency\n" + strings.Repeat("5\n", MaxDatasetBytes/2+1)
	source := NewDatasetSource(&fakeObjectAPI{objects: map[string]string{"big.csv": big}}, "b", zerolog.Nop())

	_, err := source.Fetch(context.Background(), "big.csv")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDatasetSource_List(t *testing.T) {
	modified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeObjectAPI{listed: []types.Object{
		{Key: aws.String("banks/2024.csv"), Size: aws.Int64(120), LastModified: aws.Time(modified)},
		{Key: aws.String("banks/readme.txt"), Size: aws.Int64(10)},
		{Key: aws.String("banks/2023.CSV"), Size: aws.Int64(80)},
	}}
	source := NewDatasetSource(api, "governance-data", zerolog.Nop())

	objects, err := source.List(context.Background(), "banks/")
	require.NoError(t, err)

	assert.Equal(t, "banks/", aws.ToString(api.lastList.Prefix))
	require.Len(t, objects, 2)
	assert.Equal(t, DatasetObject{Key: "banks/2024.csv", Size: 120, LastModified: modified}, objects[0])
	assert.Equal(t, "banks/2023.CSV", objects[1].Key)
}

func TestConnect_RequiresBucket(t *testing.T) {
	_, err := Connect(context.Background(), Options{Region: "us-east-1"}, zerolog.Nop())
	assert.Error(t, err)
}
