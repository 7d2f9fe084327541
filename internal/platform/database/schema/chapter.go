package schema

// ChapterTable represents the 'chapter' table
type ChapterTable struct {
	Table     string
	ID        string
	StoryID   string
	Title     string
	Content   string
	Number    string
	CreatedAt string
	UpdatedAt string
}

// Chapter is the schema definition for chapter
var Chapter = ChapterTable{
	Table:     "chapter",
	ID:        "id",
	StoryID:   "storyid",
	Title:     "title",
	Content:   "content",
	Number:    "number",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

func (t ChapterTable) Columns() []string {
	return []string{
		t.ID, t.StoryID, t.Title, t.Content, t.Number, t.CreatedAt, t.UpdatedAt,
	}
}
