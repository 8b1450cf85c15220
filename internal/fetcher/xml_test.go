package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

func collectXML(t *testing.T, input string, limit int) ([]testItem, error) {
	t.Helper()
	ch, errCh := StreamXML[testItem](context.Background(), strings.NewReader(input), "item", limit)

	var items []testItem
	for item := range ch {
		items = append(items, item)
	}
	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	return items, gotErr
}

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>GF News</title>
	<item><title>Celiac research update</title><link>https://example.com/1</link></item>
	<other><title>not an item</title></other>
	<item><title>Travel guide</title><link>https://example.com/2</link></item>
	<item><title>Baking basics</title><link>https://example.com/3</link></item>
</channel></rss>`

func TestStreamXML_Items(t *testing.T) {
	items, err := collectXML(t, rssDoc, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Celiac research update", items[0].Title)
	assert.Equal(t, "https://example.com/3", items[2].Link)
}

func TestStreamXML_Max(t *testing.T) {
	items, err := collectXML(t, rssDoc, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Travel guide", items[1].Title)
}

func TestStreamXML_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><channel><item><title>Caf\xe9 sans gluten</title></item></channel></rss>"
	items, err := collectXML(t, doc, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café sans gluten", items[0].Title)
}

func TestStreamXML_UnknownCharset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="x-made-up"?><rss><item><title>x</title></item></rss>`
	_, err := collectXML(t, doc, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charset")
}

func TestStreamXML_Malformed(t *testing.T) {
	_, err := collectXML(t, `<rss><item><title>broken</item></rss>`, 0)
	require.Error(t, err)
}

func TestStreamXML_Empty(t *testing.T) {
	items, err := collectXML(t, "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStreamXML_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, errCh := StreamXML[testItem](ctx, strings.NewReader(rssDoc), "item", 0)
	for range ch {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
