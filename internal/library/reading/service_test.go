// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reading_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/platform/testsupport"
	"github.com/taibuivan/talehub/internal/users/account"
	"github.com/taibuivan/talehub/pkg/pointer"
)

const unknownID = "01890a5d-ac96-774b-bcce-b302099a8057"

// editor may change any story's chapters.
var editor = sec.Actor{UserID: "01890a5d-ac96-774b-bcce-b302099a8aaa", Role: sec.RoleModerator}

type fixture struct {
	db       *sql.DB
	repo     reading.Repository
	chapters *chapter.Service
	service  *reading.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo builds the service; wrap may decorate the repository.
func newFixtureWithRepo(t *testing.T, wrap func(reading.Repository) reading.Repository) *fixture {
	t.Helper()

	db := testsupport.NewSQLite(t)
	logger := testsupport.Logger()

	users := account.NewService(account.NewSQLiteRepository(db), logger)
	stories := story.NewService(story.NewSQLiteRepository(db), logger)
	chapters := chapter.NewService(chapter.NewSQLiteRepository(db), stories, nil, logger)

	repo := reading.NewSQLiteRepository(db)
	if wrap != nil {
		repo = wrap(repo)
	}

	return &fixture{
		db:       db,
		repo:     repo,
		chapters: chapters,
		service:  reading.NewService(repo, users, stories, logger),
	}
}

func (f *fixture) seed(t *testing.T, chapterCount int) (string, string, []*chapter.Chapter) {
	t.Helper()

	userID := testsupport.SeedUser(t, f.db, "reader")
	storyID := testsupport.SeedStory(t, f.db, "Serial")

	created := make([]*chapter.Chapter, 0, chapterCount)
	for i := 0; i < chapterCount; i++ {
		c, err := f.chapters.CreateChapter(context.Background(), editor, storyID, "Chapter", "")
		require.NoError(t, err)
		created = append(created, c)
	}
	return userID, storyID, created
}

func TestUpdateProgress_FirstCallCreatesReadingRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, chapters := f.seed(t, 3)

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 2, pointer.To(40))
	require.NoError(t, err)

	assert.Equal(t, reading.StatusReading, record.Status)
	assert.Equal(t, 2, record.CurrentChapter)
	assert.Equal(t, 40, record.Progress)
	require.NotNil(t, record.LastChapterReadID)
	assert.Equal(t, chapters[1].ID, *record.LastChapterReadID)

	stored, err := f.service.GetStatus(ctx, userID, storyID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, reading.StatusReading, stored.Status)
	assert.Equal(t, 40, stored.Progress)
}

func TestSetStatus_IsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 0)

	first, err := f.service.SetStatus(ctx, userID, storyID, reading.StatusWantToRead)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CurrentChapter)
	assert.Equal(t, 0, first.Progress)
	assert.Nil(t, first.LastChapterReadID)

	_, err = f.service.SetStatus(ctx, userID, storyID, reading.StatusWantToRead)
	require.NoError(t, err)

	records, err := f.service.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, reading.StatusWantToRead, records[0].Status)
}

func TestSetStatus_KeepsProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 3)

	_, err := f.service.UpdateProgress(ctx, userID, storyID, 3, pointer.To(75))
	require.NoError(t, err)

	record, err := f.service.SetStatus(ctx, userID, storyID, reading.StatusLiked)
	require.NoError(t, err)
	assert.Equal(t, reading.StatusLiked, record.Status)
	assert.Equal(t, 3, record.CurrentChapter)
	assert.Equal(t, 75, record.Progress)
}

func TestUpdateProgress_OmittedProgressIsKept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 3)

	_, err := f.service.UpdateProgress(ctx, userID, storyID, 1, pointer.To(60))
	require.NoError(t, err)

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, record.CurrentChapter)
	assert.Equal(t, 60, record.Progress)

	record, err = f.service.UpdateProgress(ctx, userID, storyID, 2, pointer.To(0))
	require.NoError(t, err)
	assert.Equal(t, 0, record.Progress, "an explicit zero is written")
}

func TestUpdateProgress_StatusTransitions(t *testing.T) {
	tests := []struct {
		from reading.Status
		want reading.Status
	}{
		{reading.StatusWantToRead, reading.StatusReading},
		{reading.StatusLiked, reading.StatusReading},
		{reading.StatusReading, reading.StatusReading},
		{reading.StatusCompleted, reading.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			userID, storyID, _ := f.seed(t, 2)

			_, err := f.service.SetStatus(ctx, userID, storyID, tt.from)
			require.NoError(t, err)

			record, err := f.service.UpdateProgress(ctx, userID, storyID, 1, pointer.To(10))
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.Status)
		})
	}
}

func TestUpdateProgress_UnresolvableChapterKeepsReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, chapters := f.seed(t, 2)

	_, err := f.service.UpdateProgress(ctx, userID, storyID, 2, pointer.To(50))
	require.NoError(t, err)

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 9, pointer.To(90))
	require.NoError(t, err)

	assert.Equal(t, 9, record.CurrentChapter)
	assert.Equal(t, 90, record.Progress)
	require.NotNil(t, record.LastChapterReadID)
	assert.Equal(t, chapters[1].ID, *record.LastChapterReadID)
}

func TestUpdateProgress_ChapterZeroOnFreshRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 1)

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, record.Progress)
	assert.Nil(t, record.LastChapterReadID)
}

func TestDeletedChapter_ClearsReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, chapters := f.seed(t, 2)

	_, err := f.service.UpdateProgress(ctx, userID, storyID, 2, nil)
	require.NoError(t, err)

	require.NoError(t, f.chapters.DeleteChapter(ctx, editor, storyID, chapters[1].ID))

	record, err := f.service.GetStatus(ctx, userID, storyID)
	require.NoError(t, err)
	assert.Nil(t, record.LastChapterReadID)
	assert.Equal(t, 2, record.CurrentChapter)
}

func TestUpdateProgress_ResolvesChapterInsideWrite(t *testing.T) {
	ctx := context.Background()

	var shifter *renumberingRepository
	f := newFixtureWithRepo(t, func(inner reading.Repository) reading.Repository {
		shifter = &renumberingRepository{Repository: inner}
		return shifter
	})
	userID, storyID, chapters := f.seed(t, 3)

	// Chapter 1 is deleted after the participants are checked but before the
	// write, so number 2 now belongs to what used to be chapter 3.
	shifter.before = func() {
		require.NoError(t, f.chapters.DeleteChapter(ctx, editor, storyID, chapters[0].ID))
	}

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 2, nil)
	require.NoError(t, err)
	require.NotNil(t, record.LastChapterReadID)
	assert.Equal(t, chapters[2].ID, *record.LastChapterReadID)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 1)

	tests := []struct {
		name string
		call func() error
	}{
		{"unknown_status", func() error {
			_, err := f.service.SetStatus(ctx, userID, storyID, "ABANDONED")
			return err
		}},
		{"negative_chapter", func() error {
			_, err := f.service.UpdateProgress(ctx, userID, storyID, -1, nil)
			return err
		}},
		{"progress_above_100", func() error {
			_, err := f.service.UpdateProgress(ctx, userID, storyID, 1, pointer.To(101))
			return err
		}},
		{"progress_below_0", func() error {
			_, err := f.service.UpdateProgress(ctx, userID, storyID, 1, pointer.To(-5))
			return err
		}},
		{"recent_limit", func() error {
			_, err := f.service.ListRecent(ctx, userID, nil, 500)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperr.Is(tt.call(), apperr.CodeValidation))
		})
	}

	record, err := f.service.GetStatus(ctx, userID, storyID)
	require.NoError(t, err)
	assert.Nil(t, record, "rejected calls write nothing")
}

func TestUnknownParticipants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 1)

	_, err := f.service.SetStatus(ctx, unknownID, storyID, reading.StatusReading)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.service.UpdateProgress(ctx, userID, unknownID, 1, nil)
	assert.True(t, apperr.IsNotFound(err))

	records, err := f.service.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetStatus_Absent(t *testing.T) {
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 0)

	record, err := f.service.GetStatus(context.Background(), userID, storyID)
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 0)

	require.NoError(t, f.service.Remove(ctx, userID, storyID), "absent record is a no-op")

	_, err := f.service.SetStatus(ctx, userID, storyID, reading.StatusLiked)
	require.NoError(t, err)
	require.NoError(t, f.service.Remove(ctx, userID, storyID))

	record, err := f.service.GetStatus(ctx, userID, storyID)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := testsupport.SeedUser(t, f.db, "reader")
	first := testsupport.SeedStory(t, f.db, "First")
	second := testsupport.SeedStory(t, f.db, "Second")
	third := testsupport.SeedStory(t, f.db, "Third")

	_, err := f.service.SetStatus(ctx, userID, first, reading.StatusCompleted)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.service.UpdateProgress(ctx, userID, second, 0, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.service.UpdateProgress(ctx, userID, third, 0, nil)
	require.NoError(t, err)

	all, err := f.service.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{third, second, first}, storyIDs(all))

	readingOnly, err := f.service.ListByUserAndStatus(ctx, userID, reading.StatusReading)
	require.NoError(t, err)
	assert.Equal(t, []string{third, second}, storyIDs(readingOnly))

	recent, err := f.service.ListRecent(ctx, userID, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{third, second}, storyIDs(recent))

	completed := reading.StatusCompleted
	recentCompleted, err := f.service.ListRecent(ctx, userID, &completed, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, storyIDs(recentCompleted))

	// Status changes do not count as reading.
	_, err = f.service.SetStatus(ctx, userID, first, reading.StatusLiked)
	require.NoError(t, err)
	recent, err = f.service.ListRecent(ctx, userID, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{third}, storyIDs(recent))
}

func TestUpdateProgress_ConcurrentFirstWriters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID, storyID, _ := f.seed(t, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateProgress(ctx, userID, storyID, 1, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	records, err := f.service.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, reading.StatusReading, records[0].Status)
}

func TestUpdateProgress_RetriesAfterLostInsertRace(t *testing.T) {
	ctx := context.Background()

	var racer *racingRepository
	f := newFixtureWithRepo(t, func(inner reading.Repository) reading.Repository {
		racer = &racingRepository{Repository: inner}
		return racer
	})
	userID, storyID, _ := f.seed(t, 2)

	record, err := f.service.UpdateProgress(ctx, userID, storyID, 2, pointer.To(30))
	require.NoError(t, err)

	assert.Equal(t, 2, racer.calls)
	assert.Equal(t, reading.StatusReading, record.Status, "the competing WANT_TO_READ insert is promoted")
	assert.Equal(t, 2, record.CurrentChapter)
	assert.Equal(t, 30, record.Progress)
}

func TestUpdateProgress_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixtureWithRepo(t, func(inner reading.Repository) reading.Repository {
		return &collidingRepository{Repository: inner}
	})
	userID, storyID, _ := f.seed(t, 1)

	_, err := f.service.UpdateProgress(context.Background(), userID, storyID, 1, nil)
	require.Error(t, err)
	assert.False(t, apperr.Is(err, apperr.CodeDuplicateKey), "duplicate key never reaches callers")
	assert.True(t, apperr.Is(err, apperr.CodeInternal))
}

func storyIDs(records []*reading.Record) []string {
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.StoryID
	}
	return ids
}

// racingRepository simulates a concurrent writer that inserts the record
// between this caller's existence check and its insert.
type racingRepository struct {
	reading.Repository
	calls int
}

func (r *racingRepository) Upsert(ctx context.Context, target reading.Target, mutate reading.MutateFunc) (*reading.Record, error) {
	r.calls++
	if r.calls == 1 {
		competitor := reading.Target{UserID: target.UserID, StoryID: target.StoryID}
		_, err := r.Repository.Upsert(ctx, competitor, func(*reading.Record, *string) (*reading.Record, error) {
			now := time.Now().UTC()
			return &reading.Record{
				UserID:     target.UserID,
				StoryID:    target.StoryID,
				Status:     reading.StatusWantToRead,
				LastReadAt: now,
				UpdatedAt:  now,
			}, nil
		})
		if err != nil {
			return nil, err
		}
		return nil, apperr.DuplicateKey("ReadRecord", nil)
	}
	return r.Repository.Upsert(ctx, target, mutate)
}

// collidingRepository loses every insert race.
type collidingRepository struct {
	reading.Repository
}

func (collidingRepository) Upsert(context.Context, reading.Target, reading.MutateFunc) (*reading.Record, error) {
	return nil, apperr.DuplicateKey("ReadRecord", nil)
}

// renumberingRepository runs before once, ahead of the first upsert.
type renumberingRepository struct {
	reading.Repository
	before func()
}

func (r *renumberingRepository) Upsert(ctx context.Context, target reading.Target, mutate reading.MutateFunc) (*reading.Record, error) {
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return r.Repository.Upsert(ctx, target, mutate)
}
