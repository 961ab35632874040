package services

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/prompts"
)

// ProjectContext is the slice of a project injected into the system prompt.
type ProjectContext struct {
	Name            string
	Description     *string
	CompletedPieces []CompletedPiece
}

type CompletedPiece struct {
	Type    types.PieceType
	Summary string
}

// PromptLibrary caches template text after the first read. Entries live
// until Clear is called.
type PromptLibrary struct {
	log *logger.Logger
	src prompts.Source

	mu    sync.RWMutex
	cache map[string]string
}

func NewPromptLibrary(log *logger.Logger, src prompts.Source) *PromptLibrary {
	if src == nil {
		src = prompts.Bundled()
	}
	return &PromptLibrary{
		log:   log.With("service", "PromptLibrary"),
		src:   src,
		cache: map[string]string{},
	}
}

func (l *PromptLibrary) load(name string) (string, error) {
	l.mu.RLock()
	text, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return text, nil
	}
	text, err := l.src.Read(name)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	l.cache[name] = text
	l.mu.Unlock()
	return text, nil
}

func (l *PromptLibrary) SystemPrompt() (string, error) {
	return l.load(prompts.SystemFile)
}

func (l *PromptLibrary) PiecePrompt(t types.PieceType) (string, error) {
	return l.load(prompts.PieceFile(string(t)))
}

// Clear drops every cached template; the next read goes back to the source.
func (l *PromptLibrary) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.cache)
	l.cache = map[string]string{}
	l.log.Info("prompt cache cleared", "entries", n)
	return n
}

func (l *PromptLibrary) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// BuildConversationPrompt assembles the system prompt, the project context
// section and the piece prompt, separated by a horizontal rule.
func (l *PromptLibrary) BuildConversationPrompt(ctx context.Context, pieceType types.PieceType, pc *ProjectContext) (string, error) {
	var systemPrompt, piecePrompt string
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		systemPrompt, err = l.SystemPrompt()
		return err
	})
	g.Go(func() error {
		var err error
		piecePrompt, err = l.PiecePrompt(pieceType)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	if pc != nil {
		b.WriteString("\n\n## Current Project Context\n")
		b.WriteString("**Project Name:** " + pc.Name + "\n")
		if pc.Description != nil && *pc.Description != "" {
			b.WriteString("**Description:** " + *pc.Description + "\n")
		}
		if len(pc.CompletedPieces) > 0 {
			b.WriteString("\n### Previously Completed Pieces\n")
			for _, p := range pc.CompletedPieces {
				b.WriteString("\n**" + capitalize(string(p.Type)) + ":**\n" + p.Summary + "\n")
			}
		}
	}
	b.WriteString("\n\n---\n\n")
	b.WriteString(piecePrompt)
	return b.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
