package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds_EventTags(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 9)

	seen := make(map[string]bool)
	for _, k := range kinds {
		seen[k.UpsertEvent()] = true
		seen[k.DeletedEvent()] = true
	}
	assert.Len(t, seen, 18)
	assert.True(t, seen["tax_rate.upsert"])
	assert.True(t, seen["payment_condition.deleted"])
}
