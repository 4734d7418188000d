package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kankou/internal/model"
	"kankou/internal/upload"
)

func validInput() Input {
	return Input{
		Name:   "Contrat 2024",
		TypeID: "3",
		Format: "pdf",
		File:   upload.New("contrat.pdf", []byte("%PDF-1.4 contrat")),
	}
}

func TestDocument_Name(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantRule Rule
	}{
		{"empty", "", TooShort},
		{"one character", "a", TooShort},
		{"two characters", "ab", ""},
		{"exactly 500", strings.Repeat("x", 500), ""},
		{"501", strings.Repeat("x", 501), TooLong},
		{"500 accented runes", strings.Repeat("é", 500), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			in.Name = tt.value

			errs := Document(in, ModeCreate)
			if tt.wantRule == "" {
				assert.True(t, errs.Valid(), errs)
				return
			}
			require.Contains(t, errs, FieldName)
			assert.Equal(t, tt.wantRule, errs[FieldName].Rule)
		})
	}
}

func TestDocument_FormatAndType(t *testing.T) {
	in := validInput()
	in.Format = ""
	in.TypeID = "  "

	errs := Document(in, ModeEdit)

	require.Len(t, errs, 2)
	assert.Equal(t, TooShort, errs[FieldFormat].Rule)
	assert.Equal(t, Required, errs[FieldType].Rule)
	assert.Equal(t, "Veuillez sélectionner un type de doc", errs.Messages()[FieldType])

	in.Format = strings.Repeat("f", 31)
	assert.Equal(t, TooLong, Document(in, ModeEdit)[FieldFormat].Rule)
}

func TestDocument_FormatEnum(t *testing.T) {
	in := validInput()

	for _, format := range []string{"pdf", "word"} {
		in.Format = format
		assert.Empty(t, Document(in, ModeCreate), format)
	}

	in.Format = "spreadsheet"
	errs := Document(in, ModeCreate)
	require.Len(t, errs, 1)
	assert.Equal(t, Invalid, errs[FieldFormat].Rule)
	assert.Equal(t, "Le format du document est invalide.", errs.Messages()[FieldFormat])

	fe := Field(FieldFormat, in, ModeEdit)
	require.NotNil(t, fe)
	assert.Equal(t, Invalid, fe.Rule)
}

func TestDocument_File(t *testing.T) {
	t.Run("create requires a file", func(t *testing.T) {
		in := validInput()
		in.File = nil
		errs := Document(in, ModeCreate)
		require.Contains(t, errs, FieldFile)
		assert.Equal(t, Required, errs[FieldFile].Rule)
	})

	t.Run("edit keeps the existing file", func(t *testing.T) {
		in := validInput()
		in.File = nil
		assert.True(t, Document(in, ModeEdit).Valid())
	})

	t.Run("edit rejects an invalid handle", func(t *testing.T) {
		in := validInput()
		in.File = upload.New("vide.pdf", nil)
		errs := Document(in, ModeEdit)
		require.Contains(t, errs, FieldFile)
		assert.Equal(t, Invalid, errs[FieldFile].Rule)
	})

	t.Run("content must match extension", func(t *testing.T) {
		in := validInput()
		in.File = upload.New("faux.pdf", []byte("hello"))
		assert.Equal(t, Invalid, Document(in, ModeCreate)[FieldFile].Rule)
	})
}

func TestField(t *testing.T) {
	in := validInput()
	in.Name = "a"
	in.TypeID = ""

	fe := Field(FieldName, in, ModeCreate)
	require.NotNil(t, fe)
	assert.Equal(t, TooShort, fe.Rule)
	assert.Equal(t, "Le nom du document doit contenir au moins 2 caractères.", fe.Message)

	assert.Nil(t, Field(FieldFormat, in, ModeCreate), "only the touched field is checked")
	assert.Equal(t, Required, Field(FieldType, in, ModeCreate).Rule)
	assert.Nil(t, Field(FieldFile, in, ModeCreate))
	assert.Nil(t, Field("unknown", in, ModeCreate))
}

func TestTypeName(t *testing.T) {
	existing := []model.DocumentType{{ID: "1", Name: "Facture"}}

	fe := TypeName("   ", existing)
	require.NotNil(t, fe)
	assert.Equal(t, Required, fe.Rule)

	fe = TypeName("facture", existing)
	require.NotNil(t, fe)
	assert.Equal(t, Duplicate, fe.Rule)
	assert.Equal(t, "Ce type existe déjà", fe.Message)

	assert.Nil(t, TypeName("Contrat", existing))
}

func TestErrors_Error(t *testing.T) {
	in := validInput()
	in.Name = ""
	in.File = nil
	err := Document(in, ModeCreate)
	assert.Equal(t,
		"validation failed: doc_name: Le nom du document doit contenir au moins 2 caractères.; file: Le fichier est requis",
		err.Error())
}
