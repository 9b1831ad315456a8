package intake

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/celengine"
	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/services/contribution"
)

var tracer = otel.Tracer("kudos/intake")

// Approver records an approval on behalf of the caller in ctx.
type Approver interface {
	Approve(ctx context.Context, id uint64, handle string) error
}

type Service struct {
	approver Approver
	rule     string
	env      *cel.Env
}

type ServiceParams struct {
	fx.In

	Config   *config.Config
	Approver Approver
}

func NewService(p ServiceParams) (*Service, error) {
	rule := p.Config.Intake.Rule
	if rule == "" {
		rule = "true"
	}

	env, err := celengine.GetOrBuildEnv(Issue{}.attributes())
	if err != nil {
		return nil, err
	}
	if err := celengine.ValidateExpression(env, rule); err != nil {
		return nil, fmt.Errorf("intake: invalid rule %q: %w", rule, err)
	}

	return &Service{
		approver: p.Approver,
		rule:     rule,
		env:      env,
	}, nil
}

// Matches evaluates the intake rule against issue.
func (s *Service) Matches(issue Issue) (bool, error) {
	return celengine.Evaluate(s.env, s.rule, issue.attributes())
}

// Submit approves the issue as a contribution by its author when the rule
// matches. The caller in ctx must be the owner.
func (s *Service) Submit(ctx context.Context, issue Issue) (*Result, error) {
	ctx, span := tracer.Start(ctx, "intake.Submit", trace.WithAttributes(
		attribute.Int64("issue", int64(issue.Number)),
		attribute.String("author", issue.Author),
	))
	defer span.End()
	log := logger.FromContext(ctx).With(zap.Uint64("issue", issue.Number), zap.String("author", issue.Author))

	if issue.Author == "" {
		return nil, errutil.BadRequest("issue author is required", nil,
			errutil.WithDetails(errutil.Detail{Field: "author", Message: "required"}))
	}

	if err := contribution.ValidateID(issue.Number); err != nil {
		return nil, err
	}

	res := &Result{ContributionID: issue.Number, Handle: issue.Author}
	if addr, ok := ParsePublicAddress(issue.Body); ok {
		res.Address = addr
	}

	ok, err := s.Matches(issue)
	if err != nil {
		log.Error("intake rule evaluation failed", zap.Error(err))
		return nil, errutil.Internal("failed to evaluate intake rule", err)
	}
	if !ok {
		log.Info("issue does not match intake rule")
		return res, nil
	}

	if err := s.approver.Approve(ctx, issue.Number, issue.Author); err != nil {
		return nil, err
	}
	res.Approved = true
	log.Info("issue approved", zap.String("address", res.Address))
	return res, nil
}
