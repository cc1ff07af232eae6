package docker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/banksean/dcx/docker/options"
	"github.com/banksean/dcx/runner"
)

// BaseTag returns the alias dcx-base:<mountName>.
func BaseTag(mountName string) (string, error) {
	t, err := name.NewTag(BaseRepo+":"+mountName, name.WeakValidation)
	if err != nil {
		return "", err
	}
	return BaseRepo + ":" + t.TagStr(), nil
}

// repoAndTag splits an image reference into its short repository and tag.
func repoAndTag(ref string) (string, string, bool) {
	t, err := name.NewTag(ref, name.WeakValidation)
	if err != nil {
		return "", "", false
	}
	return strings.TrimPrefix(t.RepositoryStr(), "library/"), t.TagStr(), true
}

// IsUIDTag reports whether ref names a UID-remapped runtime image, which the
// devcontainer CLI marks with a -uid suffix.
func IsUIDTag(ref string) bool {
	repo, tag, ok := repoAndTag(ref)
	if !ok {
		return false
	}
	return strings.HasSuffix(repo, "-uid") || strings.HasSuffix(tag, "-uid")
}

func isBuildRepo(repo string) bool {
	return strings.HasPrefix(repo, BuildRepoPrefix)
}

// RepoTags lists the repo:tag names that point at image.
func (e *Engine) RepoTags(ctx context.Context, image string) ([]string, error) {
	out, err := e.inspect(ctx, "RepoTags", []string{"image", "inspect"}, "{{range .RepoTags}}{{.}}\n{{end}}", image)
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// RuntimeImageRef returns the -uid repo tag of the container's image if it
// has one, else the raw image hash.
func (e *Engine) RuntimeImageRef(ctx context.Context, id string) (string, error) {
	image, err := e.InspectImage(ctx, id)
	if err != nil {
		return "", err
	}
	tags, err := e.RepoTags(ctx, image)
	if err != nil {
		slog.WarnContext(ctx, "Engine.RuntimeImageRef: RepoTags", "image", image, "error", err)
		return image, nil
	}
	for _, t := range tags {
		if IsUIDTag(t) {
			return t, nil
		}
	}
	return image, nil
}

// RemoveRuntimeImage removes a runtime image. A tag is removed without force
// so a build image sharing its hash survives; a raw hash needs force.
func (e *Engine) RemoveRuntimeImage(ctx context.Context, ref string) error {
	opts := options.RemoveImage{Force: strings.HasPrefix(ref, "sha256:")}
	_, err := e.check(ctx, "RemoveRuntimeImage", append([]string{"rmi"}, append(options.ToArgs(opts), ref)...)...)
	return err
}

// TagBase aliases image as dcx-base:<mountName>.
func (e *Engine) TagBase(ctx context.Context, image, mountName string) error {
	tag, err := BaseTag(mountName)
	if err != nil {
		return err
	}
	_, err = e.check(ctx, "TagBase", "tag", image, tag)
	return err
}

// BaseTagExists reports whether dcx-base:<mountName> exists.
func (e *Engine) BaseTagExists(ctx context.Context, mountName string) bool {
	tag, err := BaseTag(mountName)
	if err != nil {
		return false
	}
	_, err = e.inspect(ctx, "BaseTagExists", []string{"image", "inspect"}, "{{.Id}}", tag)
	return err == nil
}

// RemoveBaseTag removes dcx-base:<mountName>. A missing tag is success.
func (e *Engine) RemoveBaseTag(ctx context.Context, mountName string) error {
	tag, err := BaseTag(mountName)
	if err != nil {
		return err
	}
	_, err = e.check(ctx, "RemoveBaseTag", "rmi", tag)
	if isNoSuchImage(err) {
		return nil
	}
	return err
}

func isNoSuchImage(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce) && strings.Contains(ce.Stderr, "No such image")
}

func (e *Engine) listImageRefs(ctx context.Context, op string, opts options.ImagesOptions, repo ...string) ([]string, error) {
	args := append([]string{"images"}, options.ToArgs(opts)...)
	out, err := e.check(ctx, op, append(args, repo...)...)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, l := range lines(out) {
		if strings.Contains(l, "<none>") {
			continue
		}
		ret = append(ret, l)
	}
	return ret, nil
}

func (e *Engine) removeEach(ctx context.Context, refs []string, force bool) (int, error) {
	var errs []error
	count := 0
	for _, ref := range refs {
		args := append([]string{"rmi"}, append(options.ToArgs(options.RemoveImage{Force: force}), ref)...)
		if _, err := e.check(ctx, "removeEach", args...); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

// SweepBaseTags removes every dcx-base:* alias.
func (e *Engine) SweepBaseTags(ctx context.Context) (int, error) {
	refs, err := e.listImageRefs(ctx, "SweepBaseTags", options.ImagesOptions{Format: "{{.Repository}}:{{.Tag}}"}, BaseRepo)
	if err != nil {
		return 0, err
	}
	return e.removeEach(ctx, refs, false)
}

// SweepDanglingAndUIDImages removes dangling images built by the
// devcontainer CLI and -uid runtime images of dcx mount points that no
// container references. Dangling images without MetadataLabel are left alone.
func (e *Engine) SweepDanglingAndUIDImages(ctx context.Context) (int, error) {
	opts := options.ImagesOptions{Filter: []string{"dangling=true", "label=" + MetadataLabel}, Quiet: true}
	dangling, err := e.check(ctx, "SweepDanglingAndUIDImages", append([]string{"images"}, options.ToArgs(opts)...)...)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range lines(dangling) {
		// Dangling layers still used by a container refuse removal; skip them.
		if _, err := e.check(ctx, "SweepDanglingAndUIDImages", "rmi", id); err != nil {
			slog.InfoContext(ctx, "Engine.SweepDanglingAndUIDImages: skip", "id", id, "error", err)
			continue
		}
		count++
	}

	refs, err := e.listImageRefs(ctx, "SweepDanglingAndUIDImages", options.ImagesOptions{Format: "{{.Repository}}:{{.Tag}}"})
	if err != nil {
		return count, err
	}
	used, err := e.referencedImages(ctx)
	if err != nil {
		return count, err
	}
	var victims []string
	for _, ref := range refs {
		repo, _, ok := repoAndTag(ref)
		if !ok || !isBuildRepo(repo) || !IsUIDTag(ref) || isReferenced(used, ref) {
			continue
		}
		victims = append(victims, ref)
	}
	n, err := e.removeEach(ctx, victims, false)
	return count + n, err
}

// SweepOrphanBuildImages removes vsc-dcx-* build images whose -uid runtime
// counterpart is gone and that no container references.
func (e *Engine) SweepOrphanBuildImages(ctx context.Context) (int, error) {
	refs, err := e.listImageRefs(ctx, "SweepOrphanBuildImages", options.ImagesOptions{Format: "{{.Repository}}:{{.Tag}}"})
	if err != nil {
		return 0, err
	}
	used, err := e.referencedImages(ctx)
	if err != nil {
		return 0, err
	}
	repos := map[string]bool{}
	for _, ref := range refs {
		if repo, _, ok := repoAndTag(ref); ok {
			repos[repo] = true
		}
	}
	var victims []string
	for _, ref := range refs {
		repo, _, ok := repoAndTag(ref)
		if !ok || !isBuildRepo(repo) || IsUIDTag(ref) {
			continue
		}
		if repos[repo+"-uid"] || isReferenced(used, ref) {
			continue
		}
		victims = append(victims, ref)
	}
	return e.removeEach(ctx, victims, false)
}

// Build builds contextDir as tag, streaming output to the user.
func (e *Engine) Build(ctx context.Context, tag, contextDir, dockerfile string, buildArgs map[string]string) error {
	opts := options.BuildOptions{Tag: tag, File: dockerfile, BuildArgs: buildArgs}
	args := append([]string{"build"}, append(options.ToArgs(opts), contextDir)...)
	slog.InfoContext(ctx, "Engine.Build", "cmd", runner.Display(Binary, args...))
	code, err := e.run.Stream(ctx, nil, Binary, args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandError{Args: args, Status: code, Stderr: "see build output above"}
	}
	return nil
}
