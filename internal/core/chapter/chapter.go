// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter keeps the chapters of every story numbered 1..N.

Chapters are only ever appended; deleting one shifts every later chapter
down by exactly one inside the same transaction. All writes to a story's
chapters are serialized on that story, so concurrent creates and deletes
can never produce a gap or a duplicate ordinal.
*/
package chapter

import (
	"sort"
	"time"

	"github.com/taibuivan/talehub/internal/platform/apperr"
)

// Chapter is one numbered installment of a story.
type Chapter struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Ordinal Audit

// OrdinalReport describes how far a story's chapter numbers are from 1..N.
type OrdinalReport struct {
	StoryID    string `json:"story_id"`
	Count      int    `json:"count"`
	Missing    []int  `json:"missing"`
	Duplicates []int  `json:"duplicates"`
	OutOfRange []int  `json:"out_of_range"`
	Dense      bool   `json:"dense"`

	// Renumbered is the number of chapters moved by a repair.
	Renumbered int `json:"renumbered"`
}

/*
CheckOrdinals audits a story's chapter numbers against the 1..N invariant.

Description: Missing lists the ordinals in 1..N that no chapter holds,
Duplicates lists ordinals held by more than one chapter, and OutOfRange
lists values below 1 or above N. The input order does not matter.
*/
func CheckOrdinals(storyID string, numbers []int) OrdinalReport {
	report := OrdinalReport{
		StoryID:    storyID,
		Count:      len(numbers),
		Missing:    []int{},
		Duplicates: []int{},
		OutOfRange: []int{},
	}

	seen := make(map[int]int, len(numbers))
	for _, number := range numbers {
		seen[number]++
	}

	for number, occurrences := range seen {
		if occurrences > 1 {
			report.Duplicates = append(report.Duplicates, number)
		}
		if number < 1 || number > len(numbers) {
			report.OutOfRange = append(report.OutOfRange, number)
		}
	}

	for number := 1; number <= len(numbers); number++ {
		if seen[number] == 0 {
			report.Missing = append(report.Missing, number)
		}
	}

	sort.Ints(report.Duplicates)
	sort.Ints(report.OutOfRange)

	report.Dense = len(report.Missing) == 0 && len(report.Duplicates) == 0 && len(report.OutOfRange) == 0
	return report
}

// numbersOf extracts the ordinals of chapters.
func numbersOf(chapters []*Chapter) []int {
	numbers := make([]int, len(chapters))
	for i, chapter := range chapters {
		numbers[i] = chapter.Number
	}
	return numbers
}

func errChapterMismatch() error {
	return apperr.BelongsToMismatch("Chapter", "Story")
}
