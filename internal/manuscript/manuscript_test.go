package manuscript

import (
	"context"
	"strings"
	"testing"

	"github.com/storyloom/atlas/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMentionsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChapter(ctx, Chapter{
		ID: "ch1", ProjectID: "p1", Title: "The Crossing", Position: 1,
		Content: "At dawn MIRA crossed the salt flats. Nobody saw mira leave.",
	}))
	require.NoError(t, s.UpsertChapter(ctx, Chapter{
		ID: "ch2", ProjectID: "p1", Title: "The Harbor", Position: 2,
		Content: "The harbor was empty.",
	}))

	mentions, err := s.GetMentions(ctx, "p1", "e1", model.TypeCharacter, "Mira")
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, "ch1", mentions[0].ChapterID)
	assert.Equal(t, "The Crossing", mentions[0].ChapterTitle)
	assert.Contains(t, strings.ToLower(mentions[0].Context), "mira")
}

func TestGetMentionsOrderedByChapterPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChapter(ctx, Chapter{
		ID: "late", ProjectID: "p1", Title: "Epilogue", Position: 9, Content: "Doran rests.",
	}))
	require.NoError(t, s.UpsertChapter(ctx, Chapter{
		ID: "early", ProjectID: "p1", Title: "Prologue", Position: 1, Content: "Doran rises.",
	}))

	mentions, err := s.GetMentions(ctx, "p1", "e1", model.TypeCharacter, "Doran")
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, "early", mentions[0].ChapterID)
	assert.Equal(t, "late", mentions[1].ChapterID)
}

func TestGetMentionsScopedToProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChapter(ctx, Chapter{
		ID: "ch1", ProjectID: "other", Title: "Elsewhere", Content: "Mira was here.",
	}))

	mentions, err := s.GetMentions(ctx, "p1", "e1", model.TypeCharacter, "Mira")
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestGetMentionsEmptyNameYieldsNothing(t *testing.T) {
	s := openTestStore(t)
	mentions, err := s.GetMentions(context.Background(), "p1", "e1", model.TypeCharacter, "  ")
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestExtractSnippetsCapsAndMarksTruncation(t *testing.T) {
	long := strings.Repeat("the marsh stretched on. ", 20) +
		"Then Mira appeared. " + strings.Repeat("fog. ", 40) +
		"Mira again. Mira once more. Mira a fourth time."
	snippets := extractSnippets(long, "Mira", maxMentionsPerChapter)
	require.Len(t, snippets, 3)
	assert.True(t, strings.HasPrefix(snippets[0], "…"))
	assert.Contains(t, snippets[0], "Mira")
}
