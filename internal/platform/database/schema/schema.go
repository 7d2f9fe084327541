// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns shared by both storage
// backends, so queries never hard-code identifiers.
package schema

import "strings"

// List joins column names for a SELECT or INSERT column list.
func List(columns []string) string {
	return strings.Join(columns, ", ")
}
