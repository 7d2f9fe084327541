package schema

// ReadRecordTable represents the 'readrecord' table, keyed by (userid, storyid)
type ReadRecordTable struct {
	Table             string
	UserID            string
	StoryID           string
	Status            string
	CurrentChapter    string
	LastChapterReadID string
	Progress          string
	LastReadAt        string
	UpdatedAt         string
}

// ReadRecord is the schema definition for readrecord
var ReadRecord = ReadRecordTable{
	Table:             "readrecord",
	UserID:            "userid",
	StoryID:           "storyid",
	Status:            "status",
	CurrentChapter:    "currentchapter",
	LastChapterReadID: "lastchapterreadid",
	Progress:          "progress",
	LastReadAt:        "lastreadat",
	UpdatedAt:         "updatedat",
}

func (t ReadRecordTable) Columns() []string {
	return []string{
		t.UserID, t.StoryID, t.Status, t.CurrentChapter, t.LastChapterReadID,
		t.Progress, t.LastReadAt, t.UpdatedAt,
	}
}
