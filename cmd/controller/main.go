// Command controller runs the ManagedConfiguration reconciler: it watches
// SecretManagerConfig objects, fetches and decrypts their declared secret
// bundles, and publishes them to the selected cloud secret provider.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
	"github.com/microscaler/secret-manager-controller/internal/cache"
	"github.com/microscaler/secret-manager-controller/internal/engine"
	"github.com/microscaler/secret-manager-controller/internal/envelope"
	"github.com/microscaler/secret-manager-controller/internal/runtimeconfig"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

const errUnableCreateController = "unable to create controller"

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
	_ = v1alpha1.AddToScheme(scheme)
}

func main() {
	var metricsAddr string
	var healthAddr string
	var enableLeaderElection bool
	var concurrent int
	var loglevel string
	var cacheDir string
	var overlayCommand string
	flag.StringVar(&metricsAddr, "metrics-addr", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&healthAddr, "health-addr", ":8081", "The address the health probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "enable-leader-election", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	flag.IntVar(&concurrent, "concurrent", 1, "The number of concurrent ManagedConfiguration reconciles.")
	flag.StringVar(&loglevel, "loglevel", "info", "loglevel to use, one of: debug, info, warn, error, dpanic, panic, fatal")
	flag.StringVar(&cacheDir, "cache-dir", "/var/cache/secret-manager-controller", "directory used to store downloaded source artifacts.")
	flag.StringVar(&overlayCommand, "overlay-command", "kustomize", "external binary invoked to render overlays.")
	flag.Parse()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(loglevel)); err != nil {
		setupLog.Error(err, "error unmarshalling loglevel")
		os.Exit(1)
	}
	logger := zap.New(zap.Level(lvl))
	ctrl.SetLogger(logger)

	runtimeStore := runtimeconfig.NewStore(runtimeconfig.FromEnv())
	watchSIGHUP(runtimeStore, logger.WithName("runtimeconfig"))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: healthAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "secret-manager-controller",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	reconciler := &engine.Reconciler{
		Client:                mgr.GetClient(),
		Log:                   ctrl.Log.WithName("controllers").WithName("ManagedConfiguration"),
		Scheme:                mgr.GetScheme(),
		Cache:                 cache.New(cacheDir),
		Decryptor:             envelope.New(),
		OverlayCommand:        overlayCommand,
		ProviderFactory:       engine.DefaultProviderFactory,
		ConfigProviderFactory: engine.DefaultConfigProviderFactory,
	}
	if err := reconciler.SetupWithManager(mgr, controller.Options{
		MaxConcurrentReconciles: concurrent,
	}); err != nil {
		setupLog.Error(err, errUnableCreateController, "controller", "ManagedConfiguration")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

// watchSIGHUP reloads runtimeconfig from the environment whenever the
// process receives SIGHUP, without requiring a restart.
func watchSIGHUP(store *runtimeconfig.Store, log logr.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	go func() {
		for range sig {
			cfg := store.Reload()
			log.Info("reloaded runtime config", "workers", cfg.Workers)
		}
	}()
}
