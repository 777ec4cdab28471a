package checker

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wallacegibbon/plugincheck/internal/frontmatter"
)

// Checker evaluates rule sets against one root directory.
type Checker struct {
	root   string
	limit  int
	logger *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithParallelism bounds the number of rules evaluated at once.
// Zero or a negative value means GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the logger used for per-rule debug records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Checker rooted at root.
func New(root string, opts ...Option) *Checker {
	c := &Checker{
		root:   root,
		limit:  runtime.GOMAXPROCS(0),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the directory relative targets are resolved against.
func (c *Checker) Root() string {
	return c.root
}

// Run evaluates rules and returns a Report in rule order.
func (c *Checker) Run(ctx context.Context, rules []Rule) *Report {
	return c.run(ctx, rules, nil)
}

// RunFunc is like Run but also calls emit for every result, in rule order,
// as soon as that result and all results before it are available.
func (c *Checker) RunFunc(ctx context.Context, rules []Rule, emit func(CheckResult)) *Report {
	return c.run(ctx, rules, emit)
}

func (c *Checker) run(ctx context.Context, rules []Rule, emit func(CheckResult)) *Report {
	results := make([]CheckResult, len(rules))
	done := make(chan int, len(rules))

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		ready := make([]bool, len(rules))
		next := 0
		for i := range done {
			ready[i] = true
			for next < len(rules) && ready[next] {
				if emit != nil {
					emit(results[next])
				}
				next++
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(c.limit)

	scheduled := 0
	for i, rule := range rules {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = c.cancelled(rule, err)
			} else {
				results[i] = c.Evaluate(rule)
			}
			done <- i
			return nil
		})
		scheduled++
	}
	g.Wait()

	for i := scheduled; i < len(rules); i++ {
		results[i] = c.cancelled(rules[i], ctx.Err())
		done <- i
	}
	close(done)
	<-emitted

	return NewReport(c.root, results)
}

func (c *Checker) cancelled(rule Rule, err error) CheckResult {
	return CheckResult{
		RuleID:   rule.ID,
		Group:    rule.Group,
		Kind:     rule.Kind,
		Target:   rule.Target,
		Status:   Fail,
		Category: Internal,
		Message:  "not evaluated: " + err.Error(),
	}
}

// Evaluate runs a single rule. It never panics; a panic inside a check
// becomes a Fail with category Internal.
func (c *Checker) Evaluate(rule Rule) (res CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("rule panicked", "rule", rule.ID, "panic", r)
			res = failed(Internal, "internal error: %v", r)
		}
		res.RuleID = rule.ID
		res.Group = rule.Group
		res.Kind = rule.Kind
		res.Target = rule.Target
		if !res.Passed() && rule.Target != "" && rule.Target != "." {
			res.Message = rule.Target + ": " + res.Message
		}
		c.logger.Debug("rule evaluated", "rule", rule.ID, "kind", string(rule.Kind), "status", res.Status.String())
	}()

	return c.evaluate(rule, c.resolve(rule.Target))
}

func (c *Checker) resolve(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(c.root, target)
}

// documentChecks holds the kinds that parse their target before checking it.
var documentChecks = map[Kind]func(frontmatter.Document, Params) CheckResult{
	KindFrontmatterHasKeys: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckRequiredKeys(doc, p.Keys)
	},
	KindFieldInSet: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckFieldAllowedSet(doc, p.Field, p.Allowed)
	},
	KindFieldOneOf: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckFieldOneOf(doc, p.Field, p.Allowed)
	},
	KindNoExtraKeys: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckNoExtraKeys(doc, p.Allowed)
	},
	KindNameMatchesIdentifier: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckNameMatchesIdentifier(doc, p.Expected)
	},
	KindJSONFieldEquals: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckJSONFieldEquals(doc, p.Field, p.Expected)
	},
	KindQualifierSyntax: func(doc frontmatter.Document, p Params) CheckResult {
		return CheckQualifierSyntax(doc, p.Field)
	},
}

func (c *Checker) evaluate(rule Rule, path string) CheckResult {
	p := rule.Params

	switch rule.Kind {
	case KindFileExists:
		return CheckFileExists(path)
	case KindDirExists:
		return CheckDirExists(path)
	case KindNoForbiddenPaths:
		return CheckNoForbiddenPaths(path, p.Patterns, p.AllowedHidden)
	}

	check, ok := documentChecks[rule.Kind]
	if !ok {
		return failed(Internal, "unknown rule kind '%s'", rule.Kind)
	}

	doc, err := frontmatter.Load(path)
	if err != nil {
		return loadFailure(err)
	}
	return check(doc, p)
}

func loadFailure(err error) CheckResult {
	var pe *frontmatter.ParseError
	cause := err.Error()
	if errors.As(err, &pe) && pe.Cause != nil {
		cause = pe.Cause.Error()
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failed(MissingArtifact, "file not found")
	case errors.Is(err, frontmatter.ErrMissingFrontmatter):
		return failed(MissingFrontmatter, "no frontmatter block")
	case errors.Is(err, frontmatter.ErrMalformedFrontmatter):
		return failed(MalformedFrontmatter, "malformed frontmatter: %s", cause)
	case errors.Is(err, frontmatter.ErrMalformedMetadata):
		return failed(MalformedMetadata, "malformed metadata: %s", cause)
	default:
		return failed(Internal, "%v", err)
	}
}
