package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	appdetection "face-scenes/application/detection"
	appdist "face-scenes/application/distribution"
	appexport "face-scenes/application/export"
	"face-scenes/application/process"
	domaindetection "face-scenes/domain/detection"
	"face-scenes/domain/export"
	"face-scenes/domain/video"
	"face-scenes/infrastructure/cache"
	"face-scenes/infrastructure/config"
	infradetection "face-scenes/infrastructure/detection"
	"face-scenes/infrastructure/drive"
	"face-scenes/infrastructure/ffmpeg"
	"face-scenes/infrastructure/filesystem"
	"face-scenes/infrastructure/imgproc"
	"face-scenes/infrastructure/logging"
	"face-scenes/infrastructure/opencv"
)

// app holds the production collaborators built from the configuration
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	opener     video.SourceOpener
	writers    export.WriterFactory
	transcoder *ffmpeg.Transcoder
	workspace  *filesystem.Workspace
	scenes     *appdetection.Service
}

func newApp(c *config.Config, logger *zap.Logger, useCache bool) (*app, error) {
	a := &app{
		cfg:       c,
		logger:    logger,
		workspace: filesystem.NewWorkspace(c.Paths.LockDirectory),
	}

	runner := ffmpeg.NewExecCommandRunner(logging.Component(logger, "ffmpeg"))
	switch c.Backend.Video {
	case config.BackendOpenCV:
		if !opencv.Available() {
			return nil, opencv.ErrUnavailable
		}
		a.opener = opencv.NewOpener()
		a.writers = opencv.NewWriterFactory()
	default:
		a.opener = ffmpeg.NewOpener(
			ffmpeg.WithOpenerFFmpegPath(c.FFmpeg.Path),
			ffmpeg.WithPipeRunner(runner),
			ffmpeg.WithOpenerLogger(logging.Component(logger, "decoder")),
		)
		a.writers = ffmpeg.NewWriterFactory(c.FFmpeg.Path, runner)
	}
	a.transcoder = ffmpeg.NewTranscoder(
		ffmpeg.WithFFmpegPath(c.FFmpeg.Path),
		ffmpeg.WithCommandRunner(runner),
	)

	opts := []appdetection.ServiceOption{
		appdetection.WithServiceLogger(logging.Component(logger, "detection")),
	}
	if useCache && !c.Cache.Disabled {
		opts = append(opts, appdetection.WithCutCache(cache.NewCache(c.Cache.Path, logger)))
	}
	a.scenes = appdetection.NewService(a.opener, detectorFactory(c.Detection), opts...)
	return a, nil
}

// detectorFactory builds a fresh detector set per run from the detection settings
func detectorFactory(d config.DetectionConfig) appdetection.DetectorFactory {
	settings := infradetection.Settings{
		Name:           d.Detector,
		Threshold:      d.Threshold,
		MinSceneLength: d.MinSceneLength,
	}
	return func() ([]domaindetection.CutDetector, error) {
		return infradetection.NewDetectors(settings)
	}
}

func (a *app) exporter() *appexport.Service {
	return appexport.NewService(a.opener, a.writers, a.transcoder, a.workspace,
		appexport.WithLogger(logging.Component(a.logger, "export")))
}

// workflow builds the process service. The returned close releases the face models.
func (a *app) workflow(out io.Writer, opts ...process.Option) (*process.Service, func(), error) {
	encoder, err := infradetection.NewFaceEncoder(infradetection.FaceModel{
		CascadePath:  a.cfg.Backend.CascadePath,
		EmbedderPath: a.cfg.Backend.EmbedderPath,
		MinFaceSize:  a.cfg.Backend.MinFaceSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load face models: %w", err)
	}

	opts = append([]process.Option{
		process.WithToolChecker(a.transcoder),
		process.WithLogger(logging.Component(a.logger, "process")),
	}, opts...)
	svc := process.NewService(a.scenes, a.opener, encoder, imgproc.Open, a.exporter(), out, opts...)
	return svc, func() { _ = encoder.Close() }, nil
}

// newUploader connects to Google Drive with the configured credentials
func newUploader(ctx context.Context, g config.GoogleConfig, out io.Writer) (*appdist.UploadService, error) {
	client, err := drive.NewClientFromCredentials(ctx, drive.OAuthConfig{
		CredentialsFile: g.CredentialsFile,
		TokenFile:       g.TokenFile,
		Output:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Drive client: %w", err)
	}
	return appdist.NewUploadService(client, g.FolderID, out), nil
}
