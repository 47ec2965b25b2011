package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/detect"
	"cihelper.dev/cihelper/internal/runner"
)

// newDockerBuildCmd creates the docker-build command
func newDockerBuildCmd() *cobra.Command {
	var push bool

	cmd := &cobra.Command{
		Use:   "docker-build",
		Short: "Build the container image, tagging it with the commit sha and ref name",
		Long: `Build the container image, tagging it with the commit sha and ref name.

The image name comes from IMAGE_NAME or the docker.image config path; the
engine binary from docker.engine (default docker). With --push the tags are
pushed after a successful build.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return dockerBuild(ctx, push)
		},
	}

	cmd.Flags().BoolVar(&push, "push", false, "Push the image tags after building.")

	return cmd
}

func dockerBuild(ctx *Context, push bool) error {
	dockerfile := config.GetString("docker.dockerfile", "Dockerfile")
	if !detect.HasDockerfile(ctx.Dir, dockerfile) {
		ctx.Splog.Notice("no %s; skipping docker-build", dockerfile)
		return nil
	}

	engine := config.GetString("docker.engine", "docker")
	if err := runner.LookTool(engine, "container engine configured via docker.engine"); err != nil {
		return err
	}

	image := envOr("IMAGE_NAME", config.GetString("docker.image", ""))
	if image == "" {
		return fmt.Errorf("IMAGE_NAME is not set and docker.image is not configured")
	}

	tags := imageTags(image)
	args := []string{"build", "--file", dockerfile}
	for _, tag := range tags {
		args = append(args, "--tag", tag)
	}
	args = append(args, ".")

	ctx.Splog.Group(engine + " build")
	err := ctx.Runner.RunStreaming(ctx.Ctx, engine, args...)
	ctx.Splog.EndGroup()
	if err != nil {
		return err
	}

	if push {
		for _, tag := range tags {
			ctx.Splog.Info("pushing %s", tag)
			if err := ctx.Runner.RunStreaming(ctx.Ctx, engine, "push", tag); err != nil {
				return err
			}
		}
	}

	ctx.setOutput("image-tags", strings.Join(tags, "\n"))
	ctx.exportEnv("CIHELPER_IMAGE", tags[0])
	ctx.appendSummary(fmt.Sprintf("**Image built:** `%s`", strings.Join(tags, "`, `")))
	return nil
}

// imageTags derives the tags for a build from the pipeline environment.
// Always includes the short sha when available; the ref name tag is added for
// branch and tag builds.
func imageTags(image string) []string {
	var tags []string
	if sha := envOr("GITHUB_SHA", ""); sha != "" {
		if len(sha) > 12 {
			sha = sha[:12]
		}
		tags = append(tags, image+":"+sha)
	}
	if ref := envOr("GITHUB_REF_NAME", ""); ref != "" {
		tags = append(tags, image+":"+sanitizeTag(ref))
	}
	if len(tags) == 0 {
		tags = append(tags, image+":latest")
	}
	return tags
}

// sanitizeTag maps a ref name onto a valid image tag
func sanitizeTag(ref string) string {
	tag := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '-'
	}, ref)
	return strings.Trim(tag, ".-")
}
