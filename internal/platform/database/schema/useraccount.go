package schema

// UserAccountTable represents the 'useraccount' table
type UserAccountTable struct {
	Table       string
	ID          string
	Username    string
	DisplayName string
	Role        string
	CreatedAt   string
}

// UserAccount is the schema definition for useraccount
var UserAccount = UserAccountTable{
	Table:       "useraccount",
	ID:          "id",
	Username:    "username",
	DisplayName: "displayname",
	Role:        "role",
	CreatedAt:   "createdat",
}

func (t UserAccountTable) Columns() []string {
	return []string{t.ID, t.Username, t.DisplayName, t.Role, t.CreatedAt}
}
