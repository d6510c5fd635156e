package release

import (
	"context"

	"github.com/aexvir/stagebin"
)

// Clean returns the install root and manifest to their unpackaged state:
// every artifact directory is removed and the manifest version is reset to
// [DevVersion].
func (p *Packager) Clean(ctx context.Context) error {
	if _, err := ReadManifest(p.manifest); err != nil {
		return err
	}

	opts := []stagebin.Option{}
	if p.quiet {
		opts = append(opts, stagebin.WithoutOutput())
	}

	err := stagebin.New(opts...).Execute(
		ctx,
		stagebin.NewStep("clear install root", p.clear),
		stagebin.NewStep("reset manifest", func(_ context.Context) error {
			p.setState(StateUpdatingManifest)
			return UpdateManifestVersion(p.manifest, DevVersion)
		}),
	)
	if err != nil {
		p.setState(StateFailed)
		return err
	}

	p.setState(StateIdle)
	return nil
}
