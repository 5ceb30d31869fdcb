package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1", query)
	assert.Empty(t, args)

	query, args = buildBaseQuery("SELECT id", Filter{Action: "clock.edit", EntityID: "42", ActorID: 7})
	assert.Equal(t, "SELECT id FROM audit_events WHERE 1=1 AND action = $1 AND entity_id = $2 AND actor_id = $3", query)
	assert.Equal(t, []any{"clock.edit", "42", int64(7)}, args)
}

func TestSnapshot(t *testing.T) {
	raw, err := snapshot(nil)
	assert.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = snapshot(map[string]int{"a": 1})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}
