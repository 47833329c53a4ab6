package git

import (
	"fmt"
	"path"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/provider/commandutil"
)

// CloneStep clones a repository into dir and checks out ref.
type CloneStep struct {
	id     compiler.StepID
	url    string
	ref    string
	dir    string
	runner ports.CommandRunner
}

// NewCloneStep creates a clone step.
func NewCloneStep(url, ref, dir string, runner ports.CommandRunner) *CloneStep {
	return &CloneStep{
		id:     compiler.MustNewStepID("git:clone:" + dir),
		url:    url,
		ref:    ref,
		dir:    dir,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *CloneStep) ID() compiler.StepID {
	return s.id
}

// Check reports satisfied when dir is a clone whose HEAD is the commit ref
// resolves to.
func (s *CloneStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	cloned, err := s.isClone(ctx)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !cloned {
		return compiler.StatusNeedsApply, nil
	}

	head, err := s.revParse(ctx, "HEAD")
	if err != nil {
		return compiler.StatusUnknown, err
	}
	want, err := s.revParse(ctx, s.ref+"^{commit}")
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if head != "" && head == want {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *CloneStep) Plan(ctx compiler.RunContext) (compiler.Diff, error) {
	cloned, err := s.isClone(ctx)
	if err != nil {
		return compiler.Diff{}, err
	}
	if !cloned {
		return compiler.NewDiff(compiler.DiffTypeAdd, "repository", s.dir, "", s.ref).
			WithCommand(fmt.Sprintf("git clone %s %s && git -C %s checkout %s", s.url, s.dir, s.dir, s.ref)), nil
	}
	head, _ := s.revParse(ctx, "HEAD")
	return compiler.NewDiff(compiler.DiffTypeModify, "repository", s.dir, shortSHA(head), s.ref).
		WithCommand(fmt.Sprintf("git -C %s fetch --tags origin && git -C %s checkout %s", s.dir, s.dir, s.ref)), nil
}

// Apply clones when dir is not yet a clone, otherwise fetches, then checks
// out ref.
func (s *CloneStep) Apply(ctx compiler.RunContext) error {
	cloned, err := s.isClone(ctx)
	if err != nil {
		return err
	}

	if cloned {
		if _, err := commandutil.Run(ctx, s.runner, "git", "-C", s.dir, "fetch", "--tags", "origin"); err != nil {
			return err
		}
	} else {
		if _, err := commandutil.Run(ctx, s.runner, "git", "clone", s.url, s.dir); err != nil {
			return err
		}
	}

	_, err = commandutil.Run(ctx, s.runner, "git", "-C", s.dir, "checkout", "--quiet", s.ref)
	return err
}

// Explain provides a human-readable explanation.
func (s *CloneStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Clone %s at %s", s.url, s.ref),
		fmt.Sprintf("Clones the deployment repository into %s and checks out %s. "+
			"An existing clone is fetched and moved to the ref instead of being cloned again.", s.dir, s.ref),
		[]string{"https://git-scm.com/docs/git-clone"},
	).WithNotes("Local modifications in the clone make checkout fail; labelhost never discards them.")
}

func (s *CloneStep) isClone(ctx compiler.RunContext) (bool, error) {
	result, err := commandutil.Probe(ctx, s.runner, "test", "-d", path.Join(s.dir, ".git"))
	if err != nil {
		return false, err
	}
	return result.Success(), nil
}

// revParse resolves rev inside the clone; an unknown rev resolves to "".
func (s *CloneStep) revParse(ctx compiler.RunContext, rev string) (string, error) {
	result, err := commandutil.Probe(ctx, s.runner, "git", "-C", s.dir, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", nil
	}
	return strings.TrimSpace(result.Stdout), nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
