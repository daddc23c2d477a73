package billing

import (
	"testing"

	"github.com/Veraticus/carga/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(DefaultSynonyms())

	tests := []struct {
		row    model.RawRow
		want   any
		name   string
		field  Field
		wantOK bool
	}{
		{
			name:   "first synonym",
			row:    model.RawRow{"F.Carga": 46066.0},
			field:  FieldDate,
			want:   46066.0,
			wantOK: true,
		},
		{
			name:   "later synonym",
			row:    model.RawRow{"Chofer": "Ana"},
			field:  FieldDriver,
			want:   "Ana",
			wantOK: true,
		},
		{
			name:   "earlier synonym wins",
			row:    model.RawRow{"Importe": 10.0, "Euros": 20.0},
			field:  FieldAmount,
			want:   20.0,
			wantOK: true,
		},
		{
			name:   "blank earlier synonym falls through",
			row:    model.RawRow{"Euros": "  ", "Importe": 10.0},
			field:  FieldAmount,
			want:   10.0,
			wantOK: true,
		},
		{
			name:   "case insensitive header",
			row:    model.RawRow{"conductor ": "Ana"},
			field:  FieldDriver,
			want:   "Ana",
			wantOK: true,
		},
		{
			name:   "zero is present",
			row:    model.RawRow{"Euros": 0.0},
			field:  FieldAmount,
			want:   0.0,
			wantOK: true,
		},
		{
			name:  "nil is missing",
			row:   model.RawRow{"Conductor": nil},
			field: FieldDriver,
		},
		{
			name:  "absent header",
			row:   model.RawRow{"Otra": "x"},
			field: FieldClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.row, tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_CopiesSynonyms(t *testing.T) {
	table := DefaultSynonyms()
	r := NewResolver(table)
	table[FieldDriver] = []string{"Piloto"}

	_, ok := r.Resolve(model.RawRow{"Conductor": "Ana"}, FieldDriver)
	assert.True(t, ok)
	assert.Equal(t, "Conductor", r.Synonyms().Primary(FieldDriver))
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Amount ")
	require.NoError(t, err)
	assert.Equal(t, FieldAmount, f)

	_, err = ParseField("vehicle")
	assert.Error(t, err)
}

func TestSynonymTable_Primary(t *testing.T) {
	table := SynonymTable{FieldDate: {"Fecha"}}
	assert.Equal(t, "Fecha", table.Primary(FieldDate))
	assert.Equal(t, "client", table.Primary(FieldClient))
}
