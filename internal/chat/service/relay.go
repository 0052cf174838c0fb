package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/chat/domain"
	"github.com/devin-clone/core-backend/internal/chat/repository"
	filesvc "github.com/devin-clone/core-backend/internal/files/service"
	"github.com/devin-clone/core-backend/internal/llm"
	"github.com/devin-clone/core-backend/internal/users"
)

const (
	historyWindow      = 20
	maxFileReferences  = 5
	maxReferenceLength = 2000
)

// Completer is the completion-provider boundary. Satisfied by *llm.Client
// and by test fakes.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
	Stream(ctx context.Context, req llm.Request, onDelta func(text string) error) (string, error)
}

// ProjectContext carries the project details woven into the system prompt
// and the owner whose token usage the exchange bills against.
type ProjectContext struct {
	OwnerID     uuid.UUID
	Name        string
	Description string
	Language    string
}

// Relay forwards user messages plus file-reference context to the
// completion provider and persists the exchanged messages.
type Relay struct {
	repo     *repository.Repo
	files    *filesvc.Tree
	users    *users.Repo
	provider Completer
}

func NewRelay(repo *repository.Repo, files *filesvc.Tree, userRepo *users.Repo, provider Completer) *Relay {
	return &Relay{repo: repo, files: files, users: userRepo, provider: provider}
}

type SendInput struct {
	Content        string
	FileReferences []uuid.UUID
}

type SendResult struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
}

// Send posts a message to a session and returns the provider's full reply.
func (r *Relay) Send(ctx context.Context, projectID, sessionID uuid.UUID, proj ProjectContext, in SendInput) (*SendResult, error) {
	if _, err := r.repo.GetSession(ctx, projectID, sessionID); err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		SessionID:      sessionID,
		Role:           domain.RoleUser,
		Content:        in.Content,
		FileReferences: in.FileReferences,
	}
	if err := r.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("insert user message: %w", err)
	}

	req, err := r.buildRequest(ctx, projectID, sessionID, proj, in)
	if err != nil {
		return nil, err
	}

	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	tokens := resp.OutputTokens
	assistantMsg := &domain.Message{
		SessionID:  sessionID,
		Role:       domain.RoleAssistant,
		Content:    resp.Content,
		CodeBlocks: ExtractCodeBlocks(resp.Content),
		TokenCount: &tokens,
	}
	if err := r.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("insert assistant message: %w", err)
	}

	r.billTokens(ctx, proj.OwnerID, resp.InputTokens+resp.OutputTokens)

	return &SendResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

// billTokens is best effort; a failed usage update never fails the chat.
func (r *Relay) billTokens(ctx context.Context, ownerID uuid.UUID, tokens int) {
	if r.users == nil || tokens <= 0 {
		return
	}
	if err := r.users.AddTokenUsage(ctx, ownerID, int64(tokens)); err != nil {
		log.Printf("token usage update failed for user %s: %v", ownerID, err)
	}
}

// Stream is the streaming variant: fragments are forwarded to onDelta as
// they arrive and the concatenated reply is persisted once the stream
// completes. A mid-stream provider failure surfaces as
// domain.ErrUpstreamUnavailable so the caller can roll back any partial
// rendering; nothing is persisted in that case.
func (r *Relay) Stream(ctx context.Context, projectID, sessionID uuid.UUID, proj ProjectContext, in SendInput, onDelta func(text string) error) (*domain.Message, error) {
	if _, err := r.repo.GetSession(ctx, projectID, sessionID); err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		SessionID:      sessionID,
		Role:           domain.RoleUser,
		Content:        in.Content,
		FileReferences: in.FileReferences,
	}
	if err := r.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("insert user message: %w", err)
	}

	req, err := r.buildRequest(ctx, projectID, sessionID, proj, in)
	if err != nil {
		return nil, err
	}

	full, err := r.provider.Stream(ctx, req, onDelta)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; drop the partial reply.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	assistantMsg := &domain.Message{
		SessionID:  sessionID,
		Role:       domain.RoleAssistant,
		Content:    full,
		CodeBlocks: ExtractCodeBlocks(full),
	}
	if err := r.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("insert assistant message: %w", err)
	}

	// Streamed responses carry no usage block; estimate at four chars per
	// token.
	r.billTokens(ctx, proj.OwnerID, len(full)/4)

	return assistantMsg, nil
}

// buildRequest assembles the provider request: recent history, the new
// message, and referenced file contents folded into the system prompt.
func (r *Relay) buildRequest(ctx context.Context, projectID, sessionID uuid.UUID, proj ProjectContext, in SendInput) (llm.Request, error) {
	history, err := r.repo.Messages(ctx, sessionID, historyWindow)
	if err != nil {
		return llm.Request{}, fmt.Errorf("list history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	system := fmt.Sprintf(
		"You are an AI software engineering assistant for a project using %s.\n"+
			"Help the user with coding tasks, answer questions, and provide suggestions.\n"+
			"Be concise but thorough. Use code examples when helpful.\n"+
			"Current project context: %s - %s",
		proj.Language, proj.Name, orDefault(proj.Description, "No description"),
	)

	if fileContext := r.fileContext(ctx, projectID, in.FileReferences); fileContext != "" {
		system += "\n\nReferenced files:" + fileContext
	}

	return llm.Request{System: system, Messages: messages}, nil
}

func (r *Relay) fileContext(ctx context.Context, projectID uuid.UUID, refs []uuid.UUID) string {
	if len(refs) > maxFileReferences {
		refs = refs[:maxFileReferences]
	}

	var b strings.Builder
	for _, id := range refs {
		f, err := r.files.Get(ctx, projectID, id)
		if err != nil || f.Content == nil {
			continue
		}
		content := *f.Content
		if len(content) > maxReferenceLength {
			content = content[:maxReferenceLength]
		}
		lang := ""
		if f.Language != nil {
			lang = *f.Language
		}
		fmt.Fprintf(&b, "\n\nFile: %s\n```%s\n%s\n```", f.Path, lang, content)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
