package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

func testRecord(text string, ts time.Time) domain.HeadlineRecord {
	return domain.HeadlineRecord{
		ID:        domain.HeadlineID(text, "wire"),
		Text:      text,
		Source:    "wire",
		Timestamp: ts,
	}
}

func TestHeadlineStore_Insert_CountsDuplicates(t *testing.T) {
	store := NewHeadlineStore()
	ctx := context.Background()
	now := time.Now()

	inserted, dups, err := store.Insert(ctx, []domain.HeadlineRecord{
		testRecord("Fed holds rates", now),
		testRecord("Oil climbs", now),
		testRecord("Fed holds rates", now),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, dups)

	inserted, dups, err = store.Insert(ctx, []domain.HeadlineRecord{testRecord("Oil climbs", now)})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, dups)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHeadlineStore_Insert_DoesNotOverwrite(t *testing.T) {
	store := NewHeadlineStore()
	ctx := context.Background()

	first := testRecord("Gold rallies", time.Now())
	first.URL = "https://example.com/first"
	second := first
	second.URL = "https://example.com/second"

	_, _, err := store.Insert(ctx, []domain.HeadlineRecord{first})
	require.NoError(t, err)
	_, _, err = store.Insert(ctx, []domain.HeadlineRecord{second})
	require.NoError(t, err)

	got, err := store.GetMany(ctx, []string{first.ID})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first", got[first.ID].URL)
}

func TestHeadlineStore_LoadRecent_OrderAndCap(t *testing.T) {
	store := NewHeadlineStore()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var records []domain.HeadlineRecord
	for i := 0; i < 5; i++ {
		records = append(records, testRecord(fmt.Sprintf("headline %d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	_, _, err := store.Insert(ctx, records)
	require.NoError(t, err)

	got, err := store.LoadRecent(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "headline 4", got[0].Text)
	assert.Equal(t, "headline 3", got[1].Text)
	assert.Equal(t, "headline 2", got[2].Text)
}

func TestHeadlineStore_LoadRecent_MaxAge(t *testing.T) {
	store := NewHeadlineStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _, err := store.Insert(ctx, []domain.HeadlineRecord{
		testRecord("fresh", now.Add(-time.Hour)),
		testRecord("stale", now.Add(-48*time.Hour)),
	})
	require.NoError(t, err)

	got, err := store.LoadRecent(ctx, 10, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestHeadlineStore_GetMany_SkipsUnknown(t *testing.T) {
	store := NewHeadlineStore()
	ctx := context.Background()
	r := testRecord("Bonds slide", time.Now())
	_, _, err := store.Insert(ctx, []domain.HeadlineRecord{r})
	require.NoError(t, err)

	got, err := store.GetMany(ctx, []string{r.ID, "unknown"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, r.ID)
}
