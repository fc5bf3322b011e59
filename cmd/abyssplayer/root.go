package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/api"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/controller"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/storage"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/tui"
)

const (
	keyAssetsPath      = "assets_path"
	keyLocale          = "locale"
	keyConfigFile      = "config_file"
	keyPlaylistPath    = "playlist_path"
	keyMediaType       = "media_type"
	keyRootPath        = "root_path"
	keyVideoPlayer     = "video_player"
	keyVideoPlayerPath = "video_player_path"
	keyRepeat          = "repeat"
	keyAuto            = "auto"
	keyAutoInterval    = "auto_interval"
	keyLoop            = "loop"
	keyRandom          = "random"
	keyLogLevel        = "log_level"
	keyLogPretty       = "log_pretty"
	keySavePath        = "save_path"
)

const (
	thumbnailWidth    = 320
	thumbnailCapacity = 256
)

func init() {
	viper.SetEnvPrefix("ABYSS")
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("assets-path", "", "Directory holding the web player assets")
	flags.String("locale", "", "Locale such as en_US")
	flags.StringP("config-file", "c", "", "YAML or JSON config file")
	flags.StringP("playlist-path", "p", "", "Play a saved .fappl playlist")
	flags.StringP("media-type", "m", "", "What to play: image, video or server")
	flags.StringP("root-path", "r", "", "Directory to scan for media")
	flags.String("video-player", "", "Video backend: native or vlc")
	flags.String("video-player-path", "", "Path to the external video player")
	flags.Bool("repeat", false, "Repeat the current item")
	flags.Bool("auto", false, "Advance automatically")
	flags.Uint32("auto-interval", 0, "Seconds between automatic advances")
	flags.Bool("loop", false, "Wrap around at either end")
	flags.Bool("random", false, "Advance in random order")
	flags.String("log-level", "", "Log level")
	flags.Bool("log-pretty", false, "Human readable logs")

	lo.Must0(rootCmd.RegisterFlagCompletionFunc("media-type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"image", "video", "server"}, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("video-player", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"native", "vlc"}, cobra.ShellCompDirectiveNoFileComp
	}))

	for key, flag := range map[string]string{
		keyAssetsPath:      "assets-path",
		keyLocale:          "locale",
		keyConfigFile:      "config-file",
		keyPlaylistPath:    "playlist-path",
		keyMediaType:       "media-type",
		keyRootPath:        "root-path",
		keyVideoPlayer:     "video-player",
		keyVideoPlayerPath: "video-player-path",
		keyRepeat:          "repeat",
		keyAuto:            "auto",
		keyAutoInterval:    "auto-interval",
		keyLoop:            "loop",
		keyRandom:          "random",
		keyLogLevel:        "log-level",
		keyLogPretty:       "log-pretty",
	} {
		lo.Must0(viper.BindPFlag(key, flags.Lookup(flag)))
	}

	rootCmd.Flags().String("save-path", "", "Where the save key writes the playlist")
	lo.Must0(viper.BindPFlag(keySavePath, rootCmd.Flags().Lookup("save-path")))

	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})
}

var rootCmd = &cobra.Command{
	Use:           "abyssplayer",
	Short:         "Play folders and playlists of pictures and videos",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return report(err)
		}
		return report(play(cfg))
	},
}

// report prints err for the user and hands it back for the exit code.
func report(err error) error {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "abyssplayer: %s\n", strings.TrimSpace(err.Error()))
	}
	return err
}

// loadConfig reads the config file, then lets flags and ABYSS_ variables
// override it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString(keyConfigFile))
	if err != nil {
		return nil, err
	}

	if viper.IsSet(keyAssetsPath) {
		cfg.AssetsPath = viper.GetString(keyAssetsPath)
	}
	if viper.IsSet(keyLocale) {
		cfg.Locale = viper.GetString(keyLocale)
	}
	if viper.IsSet(keyPlaylistPath) {
		cfg.PlaylistPath = viper.GetString(keyPlaylistPath)
	}
	if viper.IsSet(keyMediaType) {
		if cfg.MediaKind, err = config.ParseMediaKind(viper.GetString(keyMediaType)); err != nil {
			return nil, err
		}
	}
	if viper.IsSet(keyRootPath) {
		cfg.RootPath = viper.GetString(keyRootPath)
	}
	if viper.IsSet(keyVideoPlayer) {
		if cfg.VideoBackend, err = config.ParseVideoBackend(viper.GetString(keyVideoPlayer)); err != nil {
			return nil, err
		}
	}
	if viper.IsSet(keyVideoPlayerPath) {
		cfg.VideoBackendPath = viper.GetString(keyVideoPlayerPath)
	}
	if viper.IsSet(keyRepeat) {
		cfg.Repeat = viper.GetBool(keyRepeat)
	}
	if viper.IsSet(keyAuto) {
		cfg.Auto = viper.GetBool(keyAuto)
	}
	if viper.IsSet(keyAutoInterval) {
		cfg.AutoInterval = viper.GetUint32(keyAutoInterval)
	}
	if viper.IsSet(keyLoop) {
		cfg.Loop = viper.GetBool(keyLoop)
	}
	if viper.IsSet(keyRandom) {
		cfg.Random = viper.GetBool(keyRandom)
	}
	if viper.IsSet(keyLogLevel) {
		cfg.Logging.Level = viper.GetString(keyLogLevel)
	}
	if viper.IsSet(keyLogPretty) {
		cfg.Logging.Pretty = viper.GetBool(keyLogPretty)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// play runs sessions until the user quits. Going home prompts for the next
// one.
func play(cfg *config.Config) error {
	logFile, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := setupLogger(cfg.Logging, logFile)

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	defer store.Close()

	fs := afero.NewOsFs()
	factory, err := newFactory(fs, logger)
	if err != nil {
		return err
	}

	repainter := &tui.Repainter{}
	ctrl := controller.New(fs, factory, logger,
		controller.WithSessions(store),
		controller.WithRepainter(repainter),
	)
	defer ctrl.Close()

	prompter := tui.SurveyPrompter{}
	for {
		session := *cfg
		if err := tui.Prompt(&session, prompter); err != nil {
			if errors.Is(err, tui.ErrAborted) {
				return nil
			}
			return err
		}
		if err := ctrl.Commit(&session); err != nil {
			return err
		}

		result, err := tui.Run(ctrl, tui.Options{
			SavePath:  viper.GetString(keySavePath),
			Repainter: repainter,
		})
		if err != nil {
			logger.Error().Err(err).Msg("session ended")
			return err
		}
		if result == tui.ResultQuit {
			return nil
		}

		cfg.PlaylistPath = ""
		cfg.RootPath = ""
		cfg.MediaKind = config.MediaKindUnset
	}
}

func newFactory(fs afero.Fs, logger zerolog.Logger) (controller.DefaultFactory, error) {
	meta := media.NewMetadataExtractor(logger)
	if !meta.IsAvailable() {
		logger.Warn().Msg("ffprobe not found - native video disabled")
	}

	generator := media.NewThumbnailGenerator(fs, thumbnailWidth, logger)
	thumbnails, err := media.NewThumbnailService(generator, meta, thumbnailCapacity, logger)
	if err != nil {
		return controller.DefaultFactory{}, err
	}

	return controller.DefaultFactory{
		FS:         fs,
		Logger:     logger,
		Metadata:   meta,
		Thumbnails: thumbnails,
	}, nil
}
