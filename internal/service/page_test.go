package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kankou/internal/model"
	"kankou/internal/repository"
	"kankou/internal/repository/mocks"
	"kankou/internal/upload"
)

var (
	allDocs = []model.Document{
		{ID: "1", Name: "Facture mars", TypeID: "1"},
		{ID: "2", Name: "Contrat 2023", TypeID: "3"},
	}
	allTypes = []model.DocumentType{
		{ID: "1", Name: "Facture"},
		{ID: "3", Name: "Contrat"},
	}
)

func newLoadedPage(t *testing.T) (*Page, *mocks.MockDocumentRepository, *mocks.MockTypeRepository) {
	t.Helper()
	docs := new(mocks.MockDocumentRepository)
	types := new(mocks.MockTypeRepository)
	types.On("List", mock.Anything).Return(allTypes, nil).Once()
	docs.On("List", mock.Anything).Return(allDocs, nil).Once()

	p := NewPage(docs, types, nil)
	require.NoError(t, p.EnsureLoaded(context.Background()))
	require.NoError(t, p.EnsureLoaded(context.Background()), "second call is a no-op")
	return p, docs, types
}

func TestPage_Load(t *testing.T) {
	p, docs, types := newLoadedPage(t)

	snap := p.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, allDocs, snap.Documents)
	assert.Equal(t, allDocs, snap.Results)
	assert.Len(t, snap.Types, 2)
	assert.Equal(t, ModalNone, snap.Modal)
	docs.AssertExpectations(t)
	types.AssertExpectations(t)
}

func TestPage_Load_Failure(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	types := new(mocks.MockTypeRepository)
	types.On("List", mock.Anything).Return(nil, errors.New("down")).Once()
	docs.On("List", mock.Anything).Return(allDocs, nil).Once()

	p := NewPage(docs, types, nil)
	err := p.Load(context.Background())
	require.Error(t, err)

	snap := p.Snapshot()
	assert.Equal(t, allDocs, snap.Results, "documents still load")
	alert, _ := p.TakeFlash()
	assert.Equal(t, AlertGeneric, alert)
	alert, _ = p.TakeFlash()
	assert.Empty(t, alert, "flash is consumed")
	assert.False(t, snap.Loaded)
}

func TestPage_EnsureLoaded_RetriesFailedTypes(t *testing.T) {
	ctx := context.Background()
	docs := new(mocks.MockDocumentRepository)
	types := new(mocks.MockTypeRepository)
	types.On("List", mock.Anything).Return(nil, errors.New("down")).Once()
	types.On("List", mock.Anything).Return(allTypes, nil).Once()
	docs.On("List", mock.Anything).Return(allDocs, nil).Once()

	p := NewPage(docs, types, nil)
	require.Error(t, p.EnsureLoaded(ctx))
	assert.Empty(t, p.Snapshot().Types)
	assert.False(t, p.Snapshot().Loaded)

	require.NoError(t, p.EnsureLoaded(ctx), "the next request fetches the types again")
	snap := p.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Len(t, snap.Types, 2)
	assert.Equal(t, allDocs, snap.Documents)
	types.AssertNumberOfCalls(t, "List", 2)
	docs.AssertNumberOfCalls(t, "List", 1)

	require.NoError(t, p.EnsureLoaded(ctx))
	types.AssertNumberOfCalls(t, "List", 2)

	p.OpenCreate()
	form := p.Form()
	require.NoError(t, form.SetFields(FormFields{Name: "Contrat 2024", TypeID: "3"}))
	require.NoError(t, form.SetFile(upload.New("contrat.pdf", pdfBytes)))

	created := &model.Document{ID: "10", Name: "Contrat 2024", TypeID: "3"}
	docs.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()
	docs.On("List", mock.Anything).Return(append(append([]model.Document(nil), allDocs...), *created), nil).Once()

	_, err := p.SubmitForm(ctx)
	require.NoError(t, err, "a type known after the retry is accepted")
	assert.Len(t, p.Snapshot().Documents, 3)
	docs.AssertExpectations(t)
}

func TestPage_EnsureLoaded_RetriesFailedDocuments(t *testing.T) {
	ctx := context.Background()
	docs := new(mocks.MockDocumentRepository)
	types := new(mocks.MockTypeRepository)
	types.On("List", mock.Anything).Return(allTypes, nil).Once()
	docs.On("List", mock.Anything).Return(nil, errors.New("down")).Once()
	docs.On("List", mock.Anything).Return(allDocs, nil).Once()

	p := NewPage(docs, types, nil)
	require.Error(t, p.EnsureLoaded(ctx))
	require.NoError(t, p.EnsureLoaded(ctx))

	snap := p.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, allDocs, snap.Results)
	types.AssertNumberOfCalls(t, "List", 1)
	docs.AssertNumberOfCalls(t, "List", 2)
}

func TestPage_Search_ReturnsBackendResultsVerbatim(t *testing.T) {
	p, docs, _ := newLoadedPage(t)
	found := []model.Document{
		{ID: "9", Name: "zzz"},
		{ID: "4", Name: "aaa"},
		{ID: "7", Name: "Sans rapport"},
	}
	q := repository.SearchQuery{Query: "facture"}
	docs.On("Search", mock.Anything, q).Return(found, nil).Once()

	require.NoError(t, p.Search(context.Background(), q))

	snap := p.Snapshot()
	assert.Equal(t, found, snap.Results)
	assert.Equal(t, allDocs, snap.Documents, "search leaves the canonical list alone")
	assert.Equal(t, q, snap.Query)
}

func TestPage_Search_LatestIssuedWins(t *testing.T) {
	p, docs, _ := newLoadedPage(t)

	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	slow := repository.SearchQuery{Query: "ancienne"}
	fast := repository.SearchQuery{Query: "nouvelle"}

	docs.On("Search", mock.Anything, slow).
		Run(func(mock.Arguments) {
			close(slowStarted)
			<-releaseSlow
		}).
		Return([]model.Document{{ID: "old"}}, nil).Once()
	docs.On("Search", mock.Anything, fast).Return([]model.Document{{ID: "new"}}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, p.Search(context.Background(), slow))
	}()
	<-slowStarted

	require.NoError(t, p.Search(context.Background(), fast))
	close(releaseSlow)
	wg.Wait()

	assert.Equal(t, []model.Document{{ID: "new"}}, p.Snapshot().Results)
}

func TestPage_Search_Failure(t *testing.T) {
	p, docs, _ := newLoadedPage(t)
	docs.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()

	require.Error(t, p.Search(context.Background(), repository.SearchQuery{Query: "x"}))
	assert.Equal(t, allDocs, p.Snapshot().Results, "previous results stay")
	alert, _ := p.TakeFlash()
	assert.Equal(t, AlertGeneric, alert)
}

func TestPage_CreateDocument(t *testing.T) {
	ctx := context.Background()
	p, docs, _ := newLoadedPage(t)

	p.OpenCreate()
	assert.Equal(t, ModalDocument, p.Snapshot().Modal)

	form := p.Form()
	require.NoError(t, form.SetFields(FormFields{Name: "Contrat 2024", TypeID: "3"}))
	require.NoError(t, form.SetFormat("pdf"))
	require.NoError(t, form.SetFile(upload.New("contrat.pdf", pdfBytes)))

	created := &model.Document{ID: "10", Name: "Contrat 2024", TypeID: "3"}
	refreshed := append(append([]model.Document(nil), allDocs...), *created)
	docs.On("Create", mock.Anything, mock.MatchedBy(func(pl repository.DocumentPayload) bool {
		return pl.Name == "Contrat 2024" && pl.TypeID == "3" && pl.Format == model.FormatPDF &&
			pl.File != nil && pl.File.Name == "contrat.pdf"
	})).Return(created, nil).Once()
	docs.On("List", mock.Anything).Return(refreshed, nil).Once()

	_, err := p.SubmitForm(ctx)
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Equal(t, ModalNone, snap.Modal)
	assert.Equal(t, refreshed, snap.Documents)
	assert.Equal(t, refreshed, snap.Results)
	docs.AssertExpectations(t)
}

func TestPage_Refresh_KeepsActiveSearch(t *testing.T) {
	tests := []struct {
		name  string
		query repository.SearchQuery
	}{
		{"query", repository.SearchQuery{Query: "facture"}},
		{"type filter", repository.SearchQuery{TypeID: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, docs, _ := newLoadedPage(t)
			filtered := []model.Document{allDocs[0]}
			docs.On("Search", mock.Anything, tt.query).Return(filtered, nil).Twice()
			docs.On("Delete", mock.Anything, model.ID("2")).Return(nil).Once()

			require.NoError(t, p.Search(context.Background(), tt.query))
			require.NoError(t, p.DeleteDocument(context.Background(), "2", true))

			assert.Equal(t, filtered, p.Snapshot().Results)
			docs.AssertExpectations(t)
			docs.AssertNumberOfCalls(t, "List", 1)
		})
	}
}

func TestPage_Refresh_EmptySearchFetchesList(t *testing.T) {
	p, docs, _ := newLoadedPage(t)
	docs.On("Search", mock.Anything, repository.SearchQuery{}).Return(allDocs, nil).Once()
	docs.On("List", mock.Anything).Return(allDocs[:1], nil).Once()

	require.NoError(t, p.Search(context.Background(), repository.SearchQuery{}))
	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, allDocs[:1], p.Snapshot().Results)
	docs.AssertExpectations(t)
}

func TestPage_EditDocument(t *testing.T) {
	p, docs, _ := newLoadedPage(t)

	require.ErrorIs(t, p.OpenEdit("404"), ErrUnknownDocument)
	require.NoError(t, p.OpenEdit("2"))
	snap := p.Snapshot()
	assert.Equal(t, ModalDocument, snap.Modal)
	assert.True(t, snap.Form.Editing)
	assert.Equal(t, "Contrat 2023", snap.Form.Name)

	require.NoError(t, p.Form().SetFields(FormFields{Name: "Contrat 2024", TypeID: "3"}))
	docs.On("Update", mock.Anything, model.ID("2"), mock.Anything).Return(&model.Document{ID: "2"}, nil).Once()
	docs.On("List", mock.Anything).Return(allDocs, nil).Once()

	_, err := p.SubmitForm(context.Background())
	require.NoError(t, err)

	_, notice := p.TakeFlash()
	assert.Equal(t, NoticeUpdated, notice)
	assert.Equal(t, ModalNone, p.Snapshot().Modal)
}

func TestPage_DeleteDocument(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		p, docs, _ := newLoadedPage(t)
		require.NoError(t, p.AskDelete("1"))
		snap := p.Snapshot()
		assert.Equal(t, ModalDelete, snap.Modal)
		require.NotNil(t, snap.DeleteTarget)
		assert.Equal(t, "Facture mars", snap.DeleteTarget.Name)

		err := p.DeleteDocument(context.Background(), "1", false)
		assert.ErrorIs(t, err, ErrConfirmationRequired)
		docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		assert.Equal(t, ModalDelete, p.Snapshot().Modal)
	})

	t.Run("confirmed delete refetches without local removal", func(t *testing.T) {
		p, docs, _ := newLoadedPage(t)
		docs.On("Delete", mock.Anything, model.ID("1")).
			Run(func(mock.Arguments) {
				assert.Len(t, p.Snapshot().Results, 2, "row stays until the refetch")
			}).
			Return(nil).Once()
		docs.On("List", mock.Anything).Return(allDocs[1:], nil).Once()

		require.NoError(t, p.AskDelete("1"))
		require.NoError(t, p.DeleteDocument(context.Background(), "1", true))

		snap := p.Snapshot()
		assert.Equal(t, ModalNone, snap.Modal)
		assert.Equal(t, allDocs[1:], snap.Results)
	})

	t.Run("failure raises an alert", func(t *testing.T) {
		p, docs, _ := newLoadedPage(t)
		docs.On("Delete", mock.Anything, model.ID("1")).Return(errors.New("down")).Once()

		require.Error(t, p.DeleteDocument(context.Background(), "1", true))
		alert, _ := p.TakeFlash()
		assert.Equal(t, AlertGeneric, alert)
		assert.Equal(t, allDocs, p.Snapshot().Results)
	})

	t.Run("unknown document", func(t *testing.T) {
		p, _, _ := newLoadedPage(t)
		assert.ErrorIs(t, p.AskDelete("404"), ErrUnknownDocument)
	})
}

func TestPage_Types(t *testing.T) {
	t.Run("duplicate stays in the modal", func(t *testing.T) {
		p, _, types := newLoadedPage(t)
		p.OpenTypes()

		err := p.AddType(context.Background(), "facture")
		require.Error(t, err)

		snap := p.Snapshot()
		assert.Equal(t, ModalTypes, snap.Modal)
		assert.Equal(t, "facture", snap.TypeInput)
		assert.Equal(t, "Ce type existe déjà", snap.TypeError)
		types.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("backend failure alerts and rolls back", func(t *testing.T) {
		p, _, types := newLoadedPage(t)
		types.On("Create", mock.Anything, "Devis").Return(nil, errors.New("down")).Once()

		require.Error(t, p.AddType(context.Background(), "Devis"))
		assert.Len(t, p.Snapshot().Types, 2)
		alert, _ := p.TakeFlash()
		assert.Equal(t, AlertGeneric, alert)
	})

	t.Run("added type becomes selectable", func(t *testing.T) {
		p, _, types := newLoadedPage(t)
		types.On("Create", mock.Anything, "Devis").Return(&model.DocumentType{ID: "7", Name: "Devis"}, nil).Once()

		require.NoError(t, p.AddType(context.Background(), "Devis"))
		_, ok := p.Types().Resolve("7")
		assert.True(t, ok)
		assert.Empty(t, p.Snapshot().TypeInput)
	})

	t.Run("remove is local", func(t *testing.T) {
		p, _, types := newLoadedPage(t)
		assert.True(t, p.RemoveType(context.Background(), "1"))
		assert.Len(t, p.Snapshot().Types, 1)
		types.AssertNumberOfCalls(t, "List", 1)
	})
}

func TestPage_CloseModal(t *testing.T) {
	p, _, _ := newLoadedPage(t)
	p.OpenCreate()
	require.NoError(t, p.Form().SetFile(upload.New("a.pdf", pdfBytes)))

	p.CloseModal()

	snap := p.Snapshot()
	assert.Equal(t, ModalNone, snap.Modal)
	assert.Equal(t, FormClosed, snap.Form.State)
	assert.Nil(t, snap.Form.File)
}
