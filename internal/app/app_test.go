package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/qa-assistant/internal/config"
	"github.com/supportdesk/qa-assistant/internal/knowledge"
	"github.com/supportdesk/qa-assistant/internal/matcher"
	"github.com/supportdesk/qa-assistant/internal/observability"
	"github.com/supportdesk/qa-assistant/internal/storage"
)

const hospitalCSV = `question,answer,intent
What are the visiting hours?,9am to 8pm daily.,hospital_info
How do I book an appointment?,Call reception on 0700 000 000.,appointment
Do you accept NHIF insurance?,"Yes, NHIF is accepted.",insurance
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_CSVWithoutDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Assistant.Variant = config.VariantHospital
	cfg.KnowledgeBase.Path = writeCSV(t, hospitalCSV)
	cfg.Intent.Enabled = true

	a, err := New(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	require.NoError(t, a.Ready(context.Background()))

	resp, err := a.Service.Query(context.Background(), "When are the visiting hours?")
	require.NoError(t, err)
	assert.Equal(t, matcher.MethodSemanticSimilarity, resp.Result.Method)
	assert.Equal(t, "9am to 8pm daily.", resp.Answer)
	assert.Equal(t, "hospital_info", resp.Intent)
}

func TestReload_PicksUpEditedFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KnowledgeBase.Path = writeCSV(t, hospitalCSV)

	a, err := New(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	defer a.Close()
	require.Equal(t, 3, a.Service.Stats().EntryCount)

	edited := hospitalCSV + "Where is the pharmacy?,Ground floor next to reception.,hospital_info\n"
	require.NoError(t, os.WriteFile(cfg.KnowledgeBase.Path, []byte(edited), 0o644))
	require.NoError(t, a.Reload(context.Background()))
	assert.Equal(t, 4, a.Service.Stats().EntryCount)

	// An emptied file is rejected and the previous knowledge base stays live.
	require.NoError(t, os.WriteFile(cfg.KnowledgeBase.Path, []byte("question,answer\n"), 0o644))
	err = a.Reload(context.Background())
	assert.ErrorIs(t, err, knowledge.ErrEmptyKnowledgeBase)
	assert.Equal(t, 4, a.Service.Stats().EntryCount)
}

func TestNew_DatabaseSource(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "qa.db")
	cfg.Feedback.Persist = true

	db, err := OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, storage.NewQARepository(db).ReplaceAll(ctx, []knowledge.Row{
		{Question: "How do I post an ad?", Answer: "Tap Sell."},
	}, nil))
	require.NoError(t, db.Close())

	cfg.KnowledgeBase.Source = "database"
	a, err := New(ctx, cfg, observability.NopLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.Service.Stats().EntryCount)
	a.Service.SubmitFeedback(ctx, "general", 5)

	cp, err := storage.NewFeedbackRepository(a.DB).Get(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, 1, cp.SampleCount)

	require.NoError(t, storage.NewQARepository(a.DB).ReplaceAll(ctx, []knowledge.Row{
		{Question: "How do I post an ad?", Answer: "Tap Sell."},
		{Question: "How do I delete an ad?", Answer: "Open My Ads."},
	}, nil))
	require.NoError(t, a.Reload(ctx))
	assert.Equal(t, 2, a.Service.Stats().EntryCount)
}

func TestNew_EmptyKnowledgeBase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KnowledgeBase.Path = writeCSV(t, "question,answer\n")

	_, err := New(context.Background(), cfg, observability.NopLogger())
	assert.ErrorIs(t, err, knowledge.ErrEmptyKnowledgeBase)
}

func TestRowSource_DatabaseRequiresConnection(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KnowledgeBase.Source = "database"
	_, err := RowSource(cfg, nil)
	assert.Error(t, err)
}
