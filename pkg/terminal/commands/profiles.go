package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type ProfilesCmd struct {
	env *Env
}

func NewProfilesCmd(env *Env) *cobra.Command {
	pc := &ProfilesCmd{env: env}
	return &cobra.Command{
		Use:   "profiles",
		Short: "List AWS profiles from the shared config files",
		RunE:  pc.run,
	}
}

func (pc *ProfilesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	registry, err := pc.env.registry()
	if err != nil {
		return setupFailure(fmt.Errorf("failed to load AWS profiles: %w", err))
	}
	profiles, err := registry.GetProfiles(ctx)
	if err != nil {
		return setupFailure(err)
	}

	if len(profiles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No AWS profiles found")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Available profiles:")
	for _, name := range profiles {
		region, _ := registry.GetRegion(ctx, name)
		if region == "" {
			region = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (region: %s)\n", name, region)
	}
	return nil
}
