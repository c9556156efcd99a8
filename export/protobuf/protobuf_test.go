package protobuf

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestExport(t *testing.T) {
	got, err := Export(map[string]any{
		"version": "v1",
		"posts": []any{
			map[string]any{"id": int64(10), "title": "first", "draft": false},
			map[string]any{"id": int64(20), "title": "second", "draft": true},
		},
		"owner": nil,
	})
	require.NoError(t, err)

	require.Equal(t, "v1", got.Fields["version"].GetStringValue())
	require.Equal(t, structpb.NullValue_NULL_VALUE, got.Fields["owner"].GetNullValue())

	posts := got.Fields["posts"].GetListValue().GetValues()
	require.Len(t, posts, 2)
	first := posts[0].GetStructValue()
	require.Equal(t, float64(10), first.Fields["id"].GetNumberValue())
	require.Equal(t, "first", first.Fields["title"].GetStringValue())
	require.False(t, first.Fields["draft"].GetBoolValue())
	require.True(t, posts[1].GetStructValue().Fields["draft"].GetBoolValue())
}

func TestExportRejectsUnsupportedValue(t *testing.T) {
	_, err := Export(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	require.ErrorContains(t, err, `field "ch"`)
}
