package script

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/opptym/quill/directory"
	"github.com/opptym/quill/fill"
	"github.com/opptym/quill/helper"
	"github.com/opptym/quill/logger"
	"github.com/opptym/quill/project"
)

//go:embed templates/fill_agent.js.tmpl
var templateFS embed.FS

var agentTemplate = template.Must(template.ParseFS(templateFS, "templates/fill_agent.js.tmpl"))

// ErrInvalidIdentifier is returned before any backend fetch when an
// identifier is not well-formed.
var ErrInvalidIdentifier = errors.New("malformed identifier")

// Input carries the counters of an already-consumed token together
// with the pair to synthesize for. The token must have been consumed
// before Generate runs; a failed snapshot fetch does not refund it.
type Input struct {
	TokenID       string
	ProjectID     string
	LinkID        string
	RemainingUses int
	UsageLimit    int
	UsageCount    int
}

// Synthesizer assembles self-contained fill-agent scripts. The output
// embeds the project snapshot, the resolved fill plan, the usage
// counters, and the report endpoint as literals; it references no
// server-side state after delivery.
type Synthesizer struct {
	projects  project.Source
	links     directory.Source
	reportURL string
	logger    logger.Logger
}

func NewSynthesizer(projects project.Source, links directory.Source, reportURL string, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		projects:  projects,
		links:     links,
		reportURL: reportURL,
		logger:    log,
	}
}

type templateVars struct {
	ProjectJSON    string
	DeclaredJSON   string
	RulesJSON      string
	UsageJSON      string
	ReportURL      string
	TokenJSON      string
	ProjectIDJSON  string
	LinkIDJSON     string
	DeliveryIDJSON string
}

// Generate synthesizes the script for a consumed token.
func (s *Synthesizer) Generate(ctx context.Context, in Input) (string, error) {
	if !helper.ValidIdentifier(in.ProjectID) {
		return "", fmt.Errorf("%w: project id", ErrInvalidIdentifier)
	}
	if !helper.ValidIdentifier(in.LinkID) {
		return "", fmt.Errorf("%w: link id", ErrInvalidIdentifier)
	}

	snap, err := s.projects.GetSnapshot(ctx, in.ProjectID)
	if err != nil {
		return "", err
	}

	link, err := s.links.GetLink(ctx, in.LinkID)
	if err != nil {
		return "", err
	}

	plan := fill.BuildPlan(snap, link.Fields)

	deliveryID := helper.GenerateDeliveryID()

	vars, err := buildVars(s.reportURL, deliveryID, in, snap, plan)
	if err != nil {
		return "", fmt.Errorf("failed to serialize script data: %w", err)
	}

	out, err := execute(vars)
	if err != nil {
		return "", fmt.Errorf("failed to render script: %w", err)
	}

	s.logger.Debug("fill agent synthesized",
		logger.String("token_hash", helper.Get8BytesHash(in.TokenID)),
		logger.String("delivery_id", deliveryID),
		logger.String("project_id", in.ProjectID),
		logger.String("link_id", in.LinkID),
		logger.Int("declared_fields", len(plan.Declared)),
		logger.Int("rules", len(plan.Rules)),
		logger.Int("remaining_uses", in.RemainingUses))

	return out, nil
}

func buildVars(reportURL, deliveryID string, in Input, snap *project.Snapshot, plan *fill.Plan) (*templateVars, error) {
	projectJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	declared := plan.Declared
	if declared == nil {
		declared = []fill.DeclaredField{}
	}
	declaredJSON, err := json.Marshal(declared)
	if err != nil {
		return nil, err
	}

	rules := plan.Rules
	if rules == nil {
		rules = []fill.PlanRule{}
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}

	usageJSON, err := json.Marshal(map[string]int{
		"usageCount":     in.UsageCount,
		"maxUsage":       in.UsageLimit,
		"remainingUsage": in.RemainingUses,
	})
	if err != nil {
		return nil, err
	}

	// String literals go through the JSON encoder too, so embedded
	// quotes and newlines can never break out of the script.
	tokenJSON, err := json.Marshal(in.TokenID)
	if err != nil {
		return nil, err
	}
	projectIDJSON, err := json.Marshal(in.ProjectID)
	if err != nil {
		return nil, err
	}
	linkIDJSON, err := json.Marshal(in.LinkID)
	if err != nil {
		return nil, err
	}
	deliveryIDJSON, err := json.Marshal(deliveryID)
	if err != nil {
		return nil, err
	}
	reportJSON, err := json.Marshal(reportURL)
	if err != nil {
		return nil, err
	}

	return &templateVars{
		ProjectJSON:    string(projectJSON),
		DeclaredJSON:   string(declaredJSON),
		RulesJSON:      string(rulesJSON),
		UsageJSON:      string(usageJSON),
		ReportURL:      string(reportJSON),
		TokenJSON:      string(tokenJSON),
		ProjectIDJSON:  string(projectIDJSON),
		LinkIDJSON:     string(linkIDJSON),
		DeliveryIDJSON: string(deliveryIDJSON),
	}, nil
}

func execute(vars *templateVars) (string, error) {
	var buf bytes.Buffer
	if err := agentTemplate.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
