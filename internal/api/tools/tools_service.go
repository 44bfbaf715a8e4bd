package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aiarcade/aiarcade/internal/types"
)

// Ensure implementation satisfies the interface
var _ ToolsService = (*ToolsServiceImpl)(nil)

type ToolsService interface {
	ListTools(ctx context.Context, filter ListToolsFilter) ([]Tool, error)
	GetToolBySlug(ctx context.Context, slug string) (*Tool, error)
	CreateTool(ctx context.Context, params CreateToolParams, createdBy uuid.UUID) (*Tool, error)
	ListCategories(ctx context.Context) ([]Category, error)
	AddFavorite(ctx context.Context, userID, toolID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, toolID uuid.UUID) error
}

type ToolsServiceImpl struct {
	logger *slog.Logger
	repo   ToolsRepo
}

func NewToolsService(repo ToolsRepo, logger *slog.Logger) *ToolsServiceImpl {
	return &ToolsServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// iconPalette are the tile colors for tools without a logo.
var iconPalette = []string{
	"#6366f1", "#8b5cf6", "#ec4899", "#f43f5e", "#f97316",
	"#eab308", "#22c55e", "#14b8a6", "#0ea5e9", "#3b82f6",
}

// FallbackIconFor derives the letter tile for a tool with no logo. Same
// name, same icon: the color indexes the palette by a hash of the
// normalized name.
func FallbackIconFor(name string) FallbackIcon {
	normalized := strings.ToLower(strings.TrimSpace(name))

	initial := "?"
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			initial = strings.ToUpper(string(r))
			break
		}
	}

	h := fnv.New32a()
	h.Write([]byte(normalized))
	color := iconPalette[h.Sum32()%uint32(len(iconPalette))]

	return FallbackIcon{Initial: initial, Color: color}
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns "GPT-4 Turbo" into "gpt-4-turbo".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugCleanRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func decorate(t *Tool) {
	if t.LogoURL == nil || *t.LogoURL == "" {
		icon := FallbackIconFor(t.Name)
		t.FallbackIcon = &icon
	}
}

func (s *ToolsServiceImpl) ListTools(ctx context.Context, filter ListToolsFilter) ([]Tool, error) {
	ctx, span := otel.Tracer("ToolsService").Start(ctx, "ListTools", trace.WithAttributes(
		attribute.String("filter.category", filter.CategorySlug),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ListTools"))

	tools, err := s.repo.ListTools(ctx, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list tools", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list tools")
		return nil, fmt.Errorf("error listing tools: %w", err)
	}

	for i := range tools {
		decorate(&tools[i])
	}

	span.SetStatus(codes.Ok, "Tools listed")
	return tools, nil
}

func (s *ToolsServiceImpl) GetToolBySlug(ctx context.Context, slug string) (*Tool, error) {
	tool, err := s.repo.GetToolBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	decorate(tool)
	return tool, nil
}

func (s *ToolsServiceImpl) CreateTool(ctx context.Context, params CreateToolParams, createdBy uuid.UUID) (*Tool, error) {
	l := s.logger.With(slog.String("method", "CreateTool"), slog.String("name", params.Name))

	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("%w: tool name is required", types.ErrValidation)
	}
	slug := Slugify(params.Name)
	if slug == "" {
		return nil, fmt.Errorf("%w: tool name must contain letters or digits", types.ErrValidation)
	}

	tool, err := s.repo.CreateTool(ctx, params, slug, createdBy)
	if err != nil {
		l.WarnContext(ctx, "Failed to create tool", slog.Any("error", err))
		return nil, err
	}

	decorate(tool)
	l.InfoContext(ctx, "Tool created", slog.String("slug", slug))
	return tool, nil
}

func (s *ToolsServiceImpl) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *ToolsServiceImpl) AddFavorite(ctx context.Context, userID, toolID uuid.UUID) error {
	return s.repo.AddFavorite(ctx, userID, toolID)
}

func (s *ToolsServiceImpl) RemoveFavorite(ctx context.Context, userID, toolID uuid.UUID) error {
	return s.repo.RemoveFavorite(ctx, userID, toolID)
}
