// SPDX-License-Identifier: MIT
/*
Package cmd parses the command line into a runtime configuration.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"audiovis/internal/config"
	"audiovis/pkg/build"
)

// ParseArgs builds the runtime configuration from the config file and the
// command line, flags winning over file values.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var cfgPath string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded

			// Explicit flags override file values.
			if cmd.Flags().Changed("device") {
				cfg.Audio.InputDevice, _ = cmd.Flags().GetInt("device")
			}
			if cmd.Flags().Changed("channels") {
				cfg.Audio.Channels, _ = cmd.Flags().GetInt("channels")
			}
			if cmd.Flags().Changed("gain") {
				cfg.Audio.MicGain, _ = cmd.Flags().GetFloat64("gain")
			}
			if cmd.Flags().Changed("file") {
				cfg.Audio.File, _ = cmd.Flags().GetString("file")
			}
			if cmd.Flags().Changed("loop") {
				cfg.Audio.Loop, _ = cmd.Flags().GetBool("loop")
			}
			if cmd.Flags().Changed("port") {
				cfg.Transport.WSPort, _ = cmd.Flags().GetString("port")
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Debug, _ = cmd.Flags().GetBool("verbose")
				if cfg.Debug {
					cfg.LogLevel = "debug"
				}
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Command = "list"
			cfg.Audio.Interactive, _ = cmd.Flags().GetBool("interactive")
			return nil
		},
	}
	listCmd.Flags().BoolP("interactive", "i", false,
		"Pick a capture device interactively")
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().IntP("device", "d", config.MinDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntP("channels", "c", 1,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64P("gain", "g", config.DefaultMicGain,
		"Amplitude boost applied to microphone input")
	rootCmd.PersistentFlags().StringP("file", "f", "",
		"Analyze an audio file (wav/mp3/ogg/flac) instead of the microphone")
	rootCmd.PersistentFlags().Bool("loop", true,
		"Loop file playback at end of stream")
	rootCmd.PersistentFlags().StringP("port", "p", "",
		"Port for the WebSocket feature stream")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}
