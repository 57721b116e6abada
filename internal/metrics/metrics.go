package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ImagesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_images_decoded_total",
		Help: "Total number of images decoded and queued for display",
	}, []string{"stream"})
	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_decode_failures_total",
		Help: "Total number of files that could not be decoded",
	}, []string{"stream"})
	BarrenPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_barren_passes_total",
		Help: "Total number of catalog passes that produced no image",
	}, []string{"stream"})
	LoaderRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_loader_restarts_total",
		Help: "Total number of loaders respawned after their stream disconnected",
	}, []string{"stream"})
	ForceWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_force_waits_total",
		Help: "Total number of times a slot blocked for an image inside its fade",
	}, []string{"stream"})
	RenderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrollpaper_render_errors_total",
		Help: "Total number of failed texture uploads and draw calls",
	}, []string{"stream"})
)

// StreamMetrics holds the counters of a single image stream.
type StreamMetrics struct {
	ImagesDecoded  prometheus.Counter
	DecodeFailures prometheus.Counter
	BarrenPasses   prometheus.Counter
	LoaderRestarts prometheus.Counter
	ForceWaits     prometheus.Counter
	RenderErrors   prometheus.Counter
}

func NewStreamMetrics(name string) StreamMetrics {
	s := StreamMetrics{
		ImagesDecoded:  ImagesDecoded.WithLabelValues(name),
		DecodeFailures: DecodeFailures.WithLabelValues(name),
		BarrenPasses:   BarrenPasses.WithLabelValues(name),
		LoaderRestarts: LoaderRestarts.WithLabelValues(name),
		ForceWaits:     ForceWaits.WithLabelValues(name),
		RenderErrors:   RenderErrors.WithLabelValues(name),
	}
	s.ImagesDecoded.Add(0)
	s.DecodeFailures.Add(0)
	s.BarrenPasses.Add(0)
	s.LoaderRestarts.Add(0)
	s.ForceWaits.Add(0)
	s.RenderErrors.Add(0)
	return s
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
