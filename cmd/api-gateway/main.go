package main

import (
	"context"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/logger"
	"agrimart/internal/pkg/tracing"
)

const (
	serviceName = "api-gateway"
	listenAddr  = ":8080"
)

var gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_requests_total",
	Help: "Requests proxied by upstream service.",
}, []string{"upstream"})

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	logger.Init(serviceName)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer(serviceName)
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", readyz(cfg.Services.Checkout))
	mux.Handle("/metrics", promhttp.Handler())

	// 按路径前缀把请求转给各业务服务。
	routes := map[string]string{
		"/api/checkout/":      cfg.Services.Checkout,
		"/api/discount":       cfg.Services.Promotion,
		"/api/discount/":      cfg.Services.Promotion,
		"/api/delivery":       cfg.Services.Delivery,
		"/api/delivery/":      cfg.Services.Delivery,
		"/api/order":          cfg.Services.Order,
		"/api/order/":         cfg.Services.Order,
		"/api/create-payment": cfg.Services.Payment,
		"/api/payment/":       cfg.Services.Payment,
	}
	for prefix, target := range routes {
		proxy, upstream, err := newProxy(target)
		if err != nil {
			log.Fatalf("invalid upstream %s for %s: %v", target, prefix, err)
		}
		mux.Handle(prefix, proxyHandler(tracer, upstream, proxy))
	}

	if cfg.App.FeatureFlags.EnableLiveChat {
		// WebSocket 升级可直接穿过反向代理。
		chatURL, err := url.Parse(cfg.Services.Chat)
		if err != nil {
			log.Fatalf("invalid chat upstream: %v", err)
		}
		mux.Handle("/ws", httputil.NewSingleHostReverseProxy(chatURL))
	}

	log.Printf("%s listening on %s", serviceName, listenAddr)
	log.Fatal(http.ListenAndServe(listenAddr, mux))
}

func newProxy(target string) (*httputil.ReverseProxy, string, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, "", err
	}
	return httputil.NewSingleHostReverseProxy(upstream), upstream.Host, nil
}

// proxyHandler 在转发前开 span 并注入追踪上下文与渠道 baggage。
func proxyHandler(tracer trace.Tracer, upstream string, proxy *httputil.ReverseProxy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "gateway.proxy",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("upstream", upstream),
			))
		defer span.End()

		if channel := r.Header.Get("X-Client-Channel"); channel != "" {
			if member, err := baggage.NewMember("client_channel", channel); err == nil {
				if b, err := baggage.FromContext(ctx).SetMember(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, b)
				}
			}
		}

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(r.Header))
		gatewayRequestsTotal.WithLabelValues(upstream).Inc()
		proxy.ServeHTTP(w, r.WithContext(ctx))
	})
}

// readyz 检查关键下游是否可达。
func readyz(checkoutURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := http.Get(checkoutURL + "/healthz")
		if err != nil || resp.StatusCode != http.StatusOK {
			http.Error(w, "checkout-service not ready", http.StatusServiceUnavailable)
			return
		}
		resp.Body.Close()
		w.WriteHeader(http.StatusOK)
	}
}
