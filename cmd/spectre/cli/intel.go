package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spectre-ops/spectre/internal/core"
)

// RegisterIntelCommands adds the generative intel panels and the recon
// image archive commands to the root.
func RegisterIntelCommands(root *cobra.Command) {
	intelCmd := &cobra.Command{
		Use:   "intel",
		Short: "Generative intelligence panels",
	}
	intelCmd.AddCommand(newIntelBriefCmd())
	intelCmd.AddCommand(newIntelPulseCmd())
	root.AddCommand(intelCmd)

	reconCmd := &cobra.Command{
		Use:   "recon",
		Short: "Reconnaissance imagery archive",
	}
	reconCmd.AddCommand(newReconGenerateCmd())
	reconCmd.AddCommand(newReconListCmd())
	root.AddCommand(reconCmd)
}

func newIntelBriefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Print the daily operational brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			brief, err := svc.DailyBrief(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(brief)
			return nil
		},
	}
}

func newIntelPulseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pulse <query>",
		Short: "Run a grounded geopolitical pulse query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			pulse, err := svc.GeopoliticalPulse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(pulse.Text)
			if len(pulse.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range pulse.Sources {
					fmt.Printf("  %s - %s\n", src.Title, src.URI)
				}
			}
			return nil
		},
	}
}

func newReconGenerateCmd() *cobra.Command {
	var (
		kind      string
		subjectID string
		imageType string
		prompt    string
		coords    string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and archive a recon image for a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			img, err := svc.AttachReconImage(cmd.Context(),
				core.SubjectKind(kind), subjectID,
				core.ImageType(imageType), prompt, coords)
			if err != nil {
				return err
			}
			fmt.Printf("Archived %s image %s (%d bytes, sha256 %s)\n",
				img.Type, img.ID, len(img.DataURI), img.ContentHash)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(core.SubjectPOI), "subject kind: poi or mission")
	cmd.Flags().StringVar(&subjectID, "subject", "", "subject record ID")
	cmd.Flags().StringVar(&imageType, "type", string(core.ImageSatellite), "image type: Satellite, Thermal, Drone or FacialAging")
	cmd.Flags().StringVar(&prompt, "prompt", "", "scene description for the generator")
	cmd.Flags().StringVar(&coords, "coords", "", "optional coordinates to embed")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newReconListCmd() *cobra.Command {
	var (
		kind      string
		subjectID string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived imagery for a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openSession()
			if err != nil {
				return err
			}
			defer cleanup()

			images, err := svc.ArchivedImages(core.SubjectKind(kind), subjectID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tCOORDS\tHASH")
			for _, img := range images {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", img.ID, img.Type, img.Coords, img.ContentHash)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(core.SubjectPOI), "subject kind: poi or mission")
	cmd.Flags().StringVar(&subjectID, "subject", "", "subject record ID")
	cmd.MarkFlagRequired("subject")
	return cmd
}
