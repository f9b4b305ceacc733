package sam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	diTag = Tag{'D', 'I'}
	dsTag = Tag{'D', 'S'}
)

func TestGetUnique(t *testing.T) {
	r := GetFromFreePool()
	defer PutInFreePool(r)

	// Case 1: No Aux fields. Return should be nil, nil.
	r.AuxFields = AuxFields{}
	tag, err := r.AuxFields.GetUnique(diTag)
	require.NoError(t, err)
	assert.Nil(t, tag)

	// Case 2: Tag appears once.
	newAux, err := NewAux(diTag, "1")
	require.NoError(t, err)
	r.AuxFields = append(r.AuxFields, newAux)
	newAux, err = NewAux(dsTag, 2)
	require.NoError(t, err)
	r.AuxFields = append(r.AuxFields, newAux)

	tag, err = r.AuxFields.GetUnique(diTag)
	require.NoError(t, err)
	assert.NotNil(t, tag)

	// Case 3: Tag appears multiple times.
	newAux, err = NewAux(diTag, "3")
	require.NoError(t, err)
	r.AuxFields = append(r.AuxFields, newAux)
	newAux, err = NewAux(dsTag, 4)
	require.NoError(t, err)
	r.AuxFields = append(r.AuxFields, newAux)

	_, err = r.AuxFields.GetUnique(diTag)
	assert.Error(t, err)
}
