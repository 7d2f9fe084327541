package schema

// StoryTable represents the 'story' table
type StoryTable struct {
	Table       string
	ID          string
	AuthorID    string
	Title       string
	Slug        string
	Description string
	Status      string
	LikeCount   string
	ReadCount   string
	RatingAvg   string
	CreatedAt   string
	UpdatedAt   string
}

// Story is the schema definition for story
var Story = StoryTable{
	Table:       "story",
	ID:          "id",
	AuthorID:    "authorid",
	Title:       "title",
	Slug:        "slug",
	Description: "description",
	Status:      "status",
	LikeCount:   "likecount",
	ReadCount:   "readcount",
	RatingAvg:   "ratingavg",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

func (t StoryTable) Columns() []string {
	return []string{
		t.ID, t.AuthorID, t.Title, t.Slug, t.Description, t.Status,
		t.LikeCount, t.ReadCount, t.RatingAvg, t.CreatedAt, t.UpdatedAt,
	}
}
