// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/talehub/pkg/uuid"
)

func TestNew_IsTimeOrdered(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	assert.True(t, uuid.Valid(first))
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, first[:13], second[:13])
}

func TestValid(t *testing.T) {
	assert.True(t, uuid.Valid("01890a5d-ac96-774b-bcce-b302099a8057"))
	assert.False(t, uuid.Valid("not-a-uuid"))
	assert.False(t, uuid.Valid(""))
}
