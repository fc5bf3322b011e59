package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playlist"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print as JSON")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.fappl>",
	Short: "Print the header and entries of a playlist file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := playlist.Load(afero.NewOsFs(), args[0])
		if err != nil {
			return report(err)
		}

		out := cmd.OutOrStdout()
		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return report(enc.Encode(inspection{
				Version:          p.Header.Version.String(),
				Time:             p.Header.Timestamp().Unix(),
				MediaKind:        p.Header.MediaKind,
				VideoBackend:     p.Header.VideoBackend,
				VideoBackendPath: p.Header.VideoBackendPath.OrEmpty(),
				Paths:            p.Body,
			}))
		}

		h := p.Header
		fmt.Fprintf(out, "version:    %s", h.Version)
		if !h.Version.Supported() {
			fmt.Fprintf(out, " (unsupported, this build reads %d.x)", playlist.Current.Major)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "created:    %s (%s)\n", h.Timestamp().Format("2006-01-02 15:04:05 UTC"), humanize.Time(h.Timestamp()))
		fmt.Fprintf(out, "media type: %s\n", h.MediaKind)
		if h.MediaKind == config.MediaKindVideo {
			fmt.Fprintf(out, "player:     %s\n", h.VideoBackend)
			if path, ok := h.VideoBackendPath.Get(); ok {
				fmt.Fprintf(out, "player at:  %s\n", path)
			}
		}
		fmt.Fprintf(out, "entries:    %s\n", humanize.Comma(int64(len(p.Body))))
		for i, path := range p.Body {
			fmt.Fprintf(out, "%6d  %s\n", i, path)
		}
		return nil
	},
}

type inspection struct {
	Version          string              `json:"version"`
	Time             int64               `json:"time"`
	MediaKind        config.MediaKind    `json:"media_kind"`
	VideoBackend     config.VideoBackend `json:"video_backend"`
	VideoBackendPath string              `json:"video_backend_path,omitempty"`
	Paths            []string            `json:"paths"`
}
