// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
	"github.com/taibuivan/talehub/internal/platform/testsupport"
)

const unknownID = "01890a5d-ac96-774b-bcce-b302099a8057"

// editor may change any story's chapters.
var editor = sec.Actor{UserID: "01890a5d-ac96-774b-bcce-b302099a8aaa", Role: sec.RoleModerator}

type fixture struct {
	db      *sql.DB
	service *chapter.Service
	cache   *recordingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testsupport.NewSQLite(t)
	stories := story.NewService(story.NewSQLiteRepository(db), testsupport.Logger())
	cache := newRecordingCache()

	return &fixture{
		db:      db,
		service: chapter.NewService(chapter.NewSQLiteRepository(db), stories, cache, testsupport.Logger()),
		cache:   cache,
	}
}

// seedChapters creates count chapters titled "Chapter 1".."Chapter n".
func (f *fixture) seedChapters(t *testing.T, storyID string, count int) []*chapter.Chapter {
	t.Helper()

	created := make([]*chapter.Chapter, 0, count)
	for i := 1; i <= count; i++ {
		c, err := f.service.CreateChapter(context.Background(), editor, storyID, fmt.Sprintf("Chapter %d", i), "text")
		require.NoError(t, err)
		created = append(created, c)
	}
	return created
}

func (f *fixture) numbers(t *testing.T, storyID string) map[string]int {
	t.Helper()

	chapters, err := chapter.NewSQLiteRepository(f.db).ListByStory(context.Background(), storyID)
	require.NoError(t, err)

	byID := make(map[string]int, len(chapters))
	for _, c := range chapters {
		byID[c.ID] = c.Number
	}
	return byID
}

// storyUpdatedAt reads the story timestamp straight from the table.
func (f *fixture) storyUpdatedAt(t *testing.T, storyID string) time.Time {
	t.Helper()

	var raw string
	require.NoError(t, f.db.QueryRow("SELECT updatedat FROM story WHERE id = ?", storyID).Scan(&raw))
	updatedAt, err := sqlite.ParseTime(raw)
	require.NoError(t, err)
	return updatedAt
}

// backdateStory moves the story timestamp into the past.
func (f *fixture) backdateStory(t *testing.T, storyID string) time.Time {
	t.Helper()

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.db.Exec("UPDATE story SET updatedat = ? WHERE id = ?", sqlite.FormatTime(past), storyID)
	require.NoError(t, err)
	return past
}

func assertDense(t *testing.T, f *fixture, storyID string, want int) {
	t.Helper()

	report, err := f.service.VerifyOrdinals(context.Background(), storyID)
	require.NoError(t, err)
	assert.True(t, report.Dense, "report: %+v", report)
	assert.Equal(t, want, report.Count)
}

func TestCreateChapter_AppendsSequentially(t *testing.T) {
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")

	created := f.seedChapters(t, storyID, 3)

	for i, c := range created {
		assert.Equal(t, i+1, c.Number)
		assert.Equal(t, storyID, c.StoryID)
	}
	assertDense(t, f, storyID, 3)
}

func TestCreateChapter_UnknownStory(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateChapter(context.Background(), editor, unknownID, "Orphan", "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateChapter_Validation(t *testing.T) {
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")

	_, err := f.service.CreateChapter(context.Background(), editor, storyID, "   ", "body")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = f.service.CreateChapter(context.Background(), editor, storyID, "Too long", strings.Repeat("x", 200_001))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	chapters, err := f.service.ListByStory(context.Background(), storyID)
	require.NoError(t, err)
	assert.Empty(t, chapters, "rejected input leaves no row")
}

func TestDeleteChapter_MiddleOfFive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")
	created := f.seedChapters(t, storyID, 5)

	require.NoError(t, f.service.DeleteChapter(ctx, editor, storyID, created[2].ID))

	numbers := f.numbers(t, storyID)
	assert.Len(t, numbers, 4)
	assert.Equal(t, 1, numbers[created[0].ID])
	assert.Equal(t, 2, numbers[created[1].ID])
	assert.Equal(t, 3, numbers[created[3].ID], "old 4 becomes 3")
	assert.Equal(t, 4, numbers[created[4].ID], "old 5 becomes 4")

	third, err := f.service.GetByNumber(ctx, storyID, 3)
	require.NoError(t, err)
	assert.Equal(t, created[3].ID, third.ID)

	_, err = f.service.GetByNumber(ctx, storyID, 5)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteChapter_EveryPosition(t *testing.T) {
	for position := 0; position < 4; position++ {
		t.Run(fmt.Sprintf("delete_%d_of_4", position+1), func(t *testing.T) {
			f := newFixture(t)
			storyID := testsupport.SeedStory(t, f.db, "Serial")
			created := f.seedChapters(t, storyID, 4)

			require.NoError(t, f.service.DeleteChapter(context.Background(), editor, storyID, created[position].ID))

			numbers := f.numbers(t, storyID)
			for i, c := range created {
				switch {
				case i < position:
					assert.Equal(t, i+1, numbers[c.ID])
				case i > position:
					assert.Equal(t, i, numbers[c.ID])
				default:
					assert.NotContains(t, numbers, c.ID)
				}
			}
			assertDense(t, f, storyID, 3)
		})
	}
}

func TestCreateChapter_AfterDeletesAppendsAtEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")
	created := f.seedChapters(t, storyID, 4)

	require.NoError(t, f.service.DeleteChapter(ctx, editor, storyID, created[0].ID))
	require.NoError(t, f.service.DeleteChapter(ctx, editor, storyID, created[2].ID))

	appended, err := f.service.CreateChapter(ctx, editor, storyID, "Fresh", "new")
	require.NoError(t, err)
	assert.Equal(t, 3, appended.Number)
	assertDense(t, f, storyID, 3)
}

func TestDeleteChapter_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyA := testsupport.SeedStory(t, f.db, "A")
	storyB := testsupport.SeedStory(t, f.db, "B")
	chapterOfB := f.seedChapters(t, storyB, 1)[0]
	f.seedChapters(t, storyA, 2)

	t.Run("not_found", func(t *testing.T) {
		err := f.service.DeleteChapter(ctx, editor, storyA, unknownID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("belongs_to_other_story", func(t *testing.T) {
		err := f.service.DeleteChapter(ctx, editor, storyA, chapterOfB.ID)
		assert.True(t, apperr.Is(err, apperr.CodeBelongsToMismatch))

		// Nothing moved in either story.
		assertDense(t, f, storyA, 2)
		assertDense(t, f, storyB, 1)
	})
}

func TestDeleteChapter_FailedRenumberRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")
	created := f.seedChapters(t, storyID, 5)
	before := f.backdateStory(t, storyID)

	// Fail the restore pass when it writes old chapter 5 back as 4.
	_, err := f.db.Exec(`CREATE TRIGGER fail_restore BEFORE UPDATE OF number ON chapter
		WHEN NEW.number = 4 AND OLD.number < 0
		BEGIN SELECT RAISE(ABORT, 'restore failed'); END`)
	require.NoError(t, err)

	err = f.service.DeleteChapter(ctx, editor, storyID, created[2].ID)
	require.Error(t, err)

	numbers := f.numbers(t, storyID)
	require.Len(t, numbers, 5, "the removed chapter is back")
	for i, c := range created {
		assert.Equal(t, i+1, numbers[c.ID])
	}
	assert.Equal(t, before, f.storyUpdatedAt(t, storyID))

	_, err = f.db.Exec("DROP TRIGGER fail_restore")
	require.NoError(t, err)
	assertDense(t, f, storyID, 5)
}

func TestMutations_TouchStory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")

	tests := []struct {
		name   string
		mutate func(t *testing.T)
	}{
		{"create", func(t *testing.T) {
			_, err := f.service.CreateChapter(ctx, editor, storyID, "One", "")
			require.NoError(t, err)
		}},
		{"update", func(t *testing.T) {
			first, err := f.service.GetByNumber(ctx, storyID, 1)
			require.NoError(t, err)
			_, err = f.service.UpdateChapter(ctx, editor, storyID, first.ID, "One, revised", "")
			require.NoError(t, err)
		}},
		{"delete", func(t *testing.T) {
			first, err := f.service.GetByNumber(ctx, storyID, 1)
			require.NoError(t, err)
			require.NoError(t, f.service.DeleteChapter(ctx, editor, storyID, first.ID))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.backdateStory(t, storyID)
			tt.mutate(t)
			assert.True(t, f.storyUpdatedAt(t, storyID).After(before))
		})
	}
}

func TestMutations_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ownerID := testsupport.SeedUserWithRole(t, f.db, "owner", string(sec.RoleAuthor))
	storyID := testsupport.SeedStoryBy(t, f.db, ownerID, "Mine")
	owner := sec.Actor{UserID: ownerID, Role: sec.RoleAuthor}
	rival := sec.Actor{UserID: testsupport.SeedUserWithRole(t, f.db, "rival", string(sec.RoleAuthor)), Role: sec.RoleAuthor}

	first, err := f.service.CreateChapter(ctx, owner, storyID, "One", "")
	require.NoError(t, err)

	_, err = f.service.CreateChapter(ctx, rival, storyID, "Graffiti", "")
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = f.service.UpdateChapter(ctx, rival, storyID, first.ID, "Graffiti", "")
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	err = f.service.DeleteChapter(ctx, rival, storyID, first.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	stored, err := f.service.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", stored.Title)
	assertDense(t, f, storyID, 1)

	_, err = f.service.UpdateChapter(ctx, owner, storyID, first.ID, "One, revised", "")
	require.NoError(t, err)

	moderator := sec.Actor{UserID: rival.UserID, Role: sec.RoleModerator}
	require.NoError(t, f.service.DeleteChapter(ctx, moderator, storyID, first.ID))
	assertDense(t, f, storyID, 0)
}

func TestUpdateChapter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyA := testsupport.SeedStory(t, f.db, "A")
	storyB := testsupport.SeedStory(t, f.db, "B")
	created := f.seedChapters(t, storyA, 2)

	updated, err := f.service.UpdateChapter(ctx, editor, storyA, created[1].ID, "Renamed", "rewritten")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "rewritten", updated.Content)
	assert.Equal(t, 2, updated.Number)

	stored, err := f.service.GetByID(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)

	_, err = f.service.UpdateChapter(ctx, editor, storyB, created[1].ID, "Stolen", "")
	assert.True(t, apperr.Is(err, apperr.CodeBelongsToMismatch))

	_, err = f.service.UpdateChapter(ctx, editor, storyA, unknownID, "Ghost", "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Serial")
	created := f.seedChapters(t, storyID, 3)

	listed, err := f.service.ListByStory(ctx, storyID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, c := range listed {
		assert.Equal(t, created[i].ID, c.ID)
	}

	_, err = f.service.GetByID(ctx, unknownID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.service.ListByStory(ctx, unknownID)
	assert.True(t, apperr.IsNotFound(err))

	empty := testsupport.SeedStory(t, f.db, "Empty")
	none, err := f.service.ListByStory(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConcurrentMutations_StayDense(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Busy")
	created := f.seedChapters(t, storyID, 10)

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	// Delete every other chapter while new ones are appended.
	for i := 0; i < 10; i += 2 {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			errs <- f.service.DeleteChapter(ctx, editor, storyID, id)
		}(created[i].ID)
		go func(n int) {
			defer wg.Done()
			_, err := f.service.CreateChapter(ctx, editor, storyID, fmt.Sprintf("Late %d", n), "")
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assertDense(t, f, storyID, 10)
}

func TestRepairOrdinals_ClosesGaps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Damaged")
	created := f.seedChapters(t, storyID, 3)

	// Simulate a legacy gap: 1, 2, 7.
	_, err := f.db.Exec("UPDATE chapter SET number = 7 WHERE id = ?", created[2].ID)
	require.NoError(t, err)

	before, err := f.service.VerifyOrdinals(ctx, storyID)
	require.NoError(t, err)
	assert.False(t, before.Dense)
	assert.Equal(t, []int{3}, before.Missing)

	after, err := f.service.RepairOrdinals(ctx, storyID)
	require.NoError(t, err)
	assert.True(t, after.Dense)
	assert.Equal(t, 1, after.Renumbered)

	assert.Equal(t, 3, f.numbers(t, storyID)[created[2].ID])

	_, err = f.service.RepairOrdinals(ctx, unknownID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storyID := testsupport.SeedStory(t, f.db, "Cached")
	created := f.seedChapters(t, storyID, 2)

	_, err := f.service.ListByStory(ctx, storyID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.hits)

	_, err = f.service.ListByStory(ctx, storyID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	invalidations := f.cache.invalidations[storyID]
	require.NoError(t, f.service.DeleteChapter(ctx, editor, storyID, created[0].ID))
	assert.Equal(t, invalidations+1, f.cache.invalidations[storyID])

	listed, err := f.service.ListByStory(ctx, storyID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].Number)
}

// recordingCache is an in-memory ListCache that counts hits and invalidations.
type recordingCache struct {
	mu            sync.Mutex
	entries       map[string][]*chapter.Chapter
	invalidations map[string]int
	hits          int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries:       map[string][]*chapter.Chapter{},
		invalidations: map[string]int{},
	}
}

func (c *recordingCache) Get(_ context.Context, storyID string) ([]*chapter.Chapter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chapters, ok := c.entries[storyID]
	if ok {
		c.hits++
	}
	return chapters, ok
}

func (c *recordingCache) Set(_ context.Context, storyID string, chapters []*chapter.Chapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[storyID] = chapters
}

func (c *recordingCache) Invalidate(_ context.Context, storyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, storyID)
	c.invalidations[storyID]++
}
