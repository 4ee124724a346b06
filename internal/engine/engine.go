// Package engine implements the reconciliation state machine that turns one
// ManagedConfiguration into published provider secrets: fetching its source
// artifact, rendering and parsing its secret files, decrypting envelope-
// encrypted values, planning provider mutations, and publishing them.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
	"github.com/microscaler/secret-manager-controller/internal/cache"
	"github.com/microscaler/secret-manager-controller/internal/envelope"
	"github.com/microscaler/secret-manager-controller/internal/metrics"
	"github.com/microscaler/secret-manager-controller/internal/overlay"
	"github.com/microscaler/secret-manager-controller/internal/provider"
	"github.com/microscaler/secret-manager-controller/internal/status"
)

// Minimum intervals §3's normative clamp enforces. An MC requesting a
// shorter interval still reconciles, just no faster than this floor.
const (
	MinPullInterval      = 60 * time.Second
	MinReconcileInterval = 30 * time.Second
)

// Reconciler drives one ManagedConfiguration through the fetching ->
// parsing -> decrypting -> planning -> publishing pipeline each call.
type Reconciler struct {
	client.Client
	Log    logr.Logger
	Scheme *runtime.Scheme

	Cache           *cache.Cache
	Decryptor       *envelope.Decryptor
	OverlayCommand  string
	ProviderFactory ProviderFactory

	// ConfigProviderFactory builds the config-scoped provider.Provider (§4.6).
	// Defaults to DefaultConfigProviderFactory when nil.
	ConfigProviderFactory ConfigProviderFactory
}

// configProviderFactory returns r.ConfigProviderFactory, or
// DefaultConfigProviderFactory if the Reconciler was built without one.
func (r *Reconciler) configProviderFactory() ConfigProviderFactory {
	if r.ConfigProviderFactory != nil {
		return r.ConfigProviderFactory
	}
	return DefaultConfigProviderFactory
}

// Reconcile implements the full state machine described by §4.7: idle ->
// fetching -> parsing -> decrypting -> planning -> publishing ->
// succeeded|failed -> waiting -> idle. Each stage's error is classified and
// handed to fail(), which decides by kind and failure count whether it is
// recorded on the Ready condition; only a successful run clears it.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := r.Log.WithValues("managedconfiguration", req.NamespacedName)
	start := time.Now()

	var mc v1alpha1.SecretManagerConfig
	if err := r.Get(ctx, req.NamespacedName, &mc); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		log.Error(err, "unable to fetch ManagedConfiguration")
		return ctrl.Result{}, err
	}

	if mc.Spec.Features.Suspended {
		result, err := r.reconcileSuspended(ctx, &mc)
		metrics.ReconciliationsTotal.WithLabelValues(string(v1alpha1.PhaseSuspended)).Inc()
		return result, err
	}

	runID := uuid.NewString()
	log = log.WithValues("runID", runID)
	observed := mc.Status

	result, err := r.reconcileActiveSafe(ctx, &mc, log)

	metrics.ReconciliationsTotal.WithLabelValues(string(mc.Status.Phase)).Inc()
	metrics.ReconcileDuration.WithLabelValues(string(mc.Status.Phase)).Observe(time.Since(start).Seconds())

	if status.Unchanged(mc.Status, observed) {
		return result, err
	}
	if statusErr := r.Status().Update(ctx, &mc); statusErr != nil {
		log.Error(statusErr, "unable to patch status")
		return ctrl.Result{}, statusErr
	}

	return result, err
}

// reconcileSuspended sets phase=suspended and stops consuming the source
// entirely — no fetch, no publish, no requeue until the spec changes.
func (r *Reconciler) reconcileSuspended(ctx context.Context, mc *v1alpha1.SecretManagerConfig) (ctrl.Result, error) {
	mc.Status.Phase = v1alpha1.PhaseSuspended
	mc.Status.Description = "suspended"
	mc.Status.Conditions = status.Set(mc.Status.Conditions, status.ReadyFalse("Suspended", "reconciliation is suspended"))
	if err := r.Status().Update(ctx, mc); err != nil {
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

// reconcileActiveSafe recovers a panic from reconcileActive into a
// KindFatal failure rather than letting it crash the process: §7 treats
// "programming errors, unreachable states" as fatal, surfaced immediately
// as Ready=False/Reason=InternalError rather than retried.
func (r *Reconciler) reconcileActiveSafe(ctx context.Context, mc *v1alpha1.SecretManagerConfig, log logr.Logger) (result ctrl.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error(fmt.Errorf("%v", rec), "recovered panic in reconciliation")
			result, err = r.fail(mc, "reconciling", &PanicError{Value: rec}, MinReconcileInterval)
		}
	}()
	return r.reconcileActive(ctx, mc, log)
}

// reconcileActive runs the fetching/parsing/decrypting/planning/publishing
// pipeline and writes the resulting phase and conditions onto mc. The
// caller persists mc's status and decides the returned ctrl.Result.
func (r *Reconciler) reconcileActive(ctx context.Context, mc *v1alpha1.SecretManagerConfig, log logr.Logger) (ctrl.Result, error) {
	mc.Status.ObservedGeneration = mc.Generation
	mc.Status.Phase = v1alpha1.PhaseSyncing

	if d := mc.Spec.Timing.PullInterval.Duration; d < MinPullInterval {
		log.Info("warning: pullInterval below minimum, clamped", "requested", d, "minimum", MinPullInterval)
	}
	if d := mc.Spec.Timing.ReconcileInterval.Duration; d < MinReconcileInterval {
		log.Info("warning: reconcileInterval below minimum, clamped", "requested", d, "minimum", MinReconcileInterval)
	}
	pullInterval := clamp(mc.Spec.Timing.PullInterval.Duration, MinPullInterval)
	reconcileInterval := clamp(mc.Spec.Timing.ReconcileInterval.Duration, MinReconcileInterval)

	fetchCtx, fetchSpan := metrics.StartStage(ctx, "fetch")
	artifactDir, revision, err := r.fetch(fetchCtx, mc)
	fetchSpan.End()
	if err != nil {
		return r.fail(mc, "fetching", err, reconcileInterval)
	}

	overlaySecrets, err := overlay.New(r.overlayCommand()).Build(ctx, filepath.Join(artifactDir, mc.Spec.Secrets.OverlayPath))
	if err != nil {
		return r.fail(mc, "parsing", err, reconcileInterval)
	}

	secretBundle, configBundle, err := buildBundles(overlaySecrets)
	if err != nil {
		return r.fail(mc, "parsing", err, reconcileInterval)
	}

	_, decryptSpan := metrics.StartStage(ctx, "decrypt")
	keys, err := loadKeyMaterial(ctx, r.Client, mc.Namespace, mc.Spec.Secrets)
	if err != nil {
		decryptSpan.End()
		return r.fail(mc, "decrypting", err, reconcileInterval)
	}
	secretBundle, err = decryptBundle(secretBundle, r.Decryptor, keys)
	decryptSpan.End()
	if err != nil {
		return r.fail(mc, "decrypting", err, reconcileInterval)
	}

	prov, err := r.ProviderFactory(ctx, mc.Spec.Provider)
	if err != nil {
		return r.fail(mc, "planning", err, reconcileInterval)
	}

	_, planSpan := metrics.StartStage(ctx, "plan")
	plan, err := computePlan(ctx, secretBundle, prov, mc.Spec.Naming.Prefix, mc.Spec.Naming.Suffix, mc.Spec.Features.DriftDetection)
	planSpan.End()
	if err != nil {
		return r.fail(mc, "planning", err, reconcileInterval)
	}

	enabledCount := len(secretBundle.EnabledKeys())

	var configProv provider.Provider
	var configPlan Plan
	if mc.Spec.Configs != nil && mc.Spec.Configs.Enabled && configBundle.Len() > 0 {
		configBundle, err = decryptBundle(configBundle, r.Decryptor, keys)
		if err != nil {
			return r.fail(mc, "decrypting", err, reconcileInterval)
		}
		configProv, err = r.configProviderFactory()(ctx, mc.Spec.Provider, mc.Spec.Configs)
		if err != nil {
			return r.fail(mc, "planning", err, reconcileInterval)
		}
		configPlan, err = computePlan(ctx, configBundle, configProv, mc.Spec.Naming.Prefix, mc.Spec.Naming.Suffix, false)
		if err != nil {
			return r.fail(mc, "planning", err, reconcileInterval)
		}
		enabledCount += len(configBundle.EnabledKeys())
	}

	publishCtx, publishSpan := metrics.StartStage(ctx, "publish")
	changed, err := r.publish(publishCtx, prov, plan, log)
	if err == nil && len(configPlan.Ops) > 0 {
		var configChanged int
		configChanged, err = r.publish(publishCtx, configProv, configPlan, log)
		changed += configChanged
	}
	publishSpan.End()
	if err != nil {
		return r.fail(mc, "publishing", err, reconcileInterval)
	}
	// SecretsCount tracks §3's invariant (enabled keys in the Parsed Bundle),
	// not the number of ops actually executed this run — an unchanged key
	// still counts as published, it just didn't need a new version.
	mc.Status.SecretsCount = enabledCount

	mc.Status.LastReconciledReconcileNow = mc.Annotations[v1alpha1.AnnotationReconcileNow]
	mc.Status.LastSourceRevision = revision
	mc.Status.Phase = v1alpha1.PhaseSynced
	mc.Status.FailureCount = 0
	mc.Status.Description = fmt.Sprintf("published %d secrets (%d new versions)", enabledCount, changed)
	mc.Status.Conditions = status.Set(mc.Status.Conditions, status.ReadyTrue("Synced", mc.Status.Description))

	now := metav1.Now()
	mc.Status.LastSyncTime = &now
	next := metav1.NewTime(now.Add(pullInterval))
	mc.Status.NextScheduledReconcileTime = &next

	metrics.RequeuesTotal.WithLabelValues("timer").Inc()
	return ctrl.Result{RequeueAfter: pullInterval}, nil
}

// fetch resolves the source artifact (or reuses the last cached revision
// when git-pulls-suspended) and returns the extracted directory and the
// revision it corresponds to.
func (r *Reconciler) fetch(ctx context.Context, mc *v1alpha1.SecretManagerConfig) (string, string, error) {
	sourceID := mc.Namespace + "/" + mc.Spec.Source.Name

	if mc.Spec.Features.GitPullsSuspended {
		if mc.Status.LastSourceRevision == "" {
			return "", "", &SourceNotReadyError{Kind: string(mc.Spec.Source.Kind), Name: mc.Spec.Source.Name, Namespace: mc.Namespace}
		}
		dir, ok := r.Cache.Cached(cache.Key{SourceID: sourceID, Revision: mc.Status.LastSourceRevision})
		if !ok {
			return "", "", &SourceNotReadyError{Kind: string(mc.Spec.Source.Kind), Name: mc.Spec.Source.Name, Namespace: mc.Namespace}
		}
		return dir, mc.Status.LastSourceRevision, nil
	}

	artifact, err := resolveSourceArtifact(ctx, r.Client, mc.Spec.Source, mc.Namespace)
	if err != nil {
		return "", "", err
	}

	dir, err := r.Cache.Acquire(ctx, cache.Key{SourceID: sourceID, Revision: artifact.Revision}, artifact.URL, artifact.Checksum, artifact.Size)
	if err != nil {
		return "", "", err
	}
	return dir, artifact.Revision, nil
}

func (r *Reconciler) overlayCommand() string {
	if r.OverlayCommand == "" {
		return "kustomize"
	}
	return r.OverlayCommand
}

// publish applies every op in ascending remote-name order. Partial progress
// is allowed: ops already applied before a failure stay applied, and the
// count of successful publishes is returned alongside the first error.
func (r *Reconciler) publish(ctx context.Context, prov provider.Provider, plan Plan, log logr.Logger) (int, error) {
	published := 0
	for _, op := range plan.Ops {
		switch op.Kind {
		case OpPublish:
			if _, err := prov.EnsurePresent(ctx, op.RemoteName, op.Value); err != nil {
				metrics.SecretsPublishedTotal.WithLabelValues(prov.Kind(), "error").Inc()
				return published, fmt.Errorf("engine: publish %q: %w", op.RemoteName, err)
			}
			metrics.SecretsPublishedTotal.WithLabelValues(prov.Kind(), "published").Inc()
			published++
		case OpDisable:
			if err := prov.DisableVersion(ctx, op.RemoteName, op.Version); err != nil {
				metrics.SecretsPublishedTotal.WithLabelValues(prov.Kind(), "error").Inc()
				return published, fmt.Errorf("engine: disable %q: %w", op.RemoteName, err)
			}
			metrics.SecretsPublishedTotal.WithLabelValues(prov.Kind(), "disabled").Inc()
		}
	}
	for _, d := range plan.Drift {
		log.Info("drift detected: remote secret not present in bundle", "remoteName", d.RemoteName)
	}
	return published, nil
}

// fail classifies err and applies §7's per-kind policy: user-error and
// fatal surface Ready=False immediately and requeue at the normal
// reconcile interval; transient-infra and corrupt-artifact increment
// status.failureCount, requeue with exponential backoff, and only flip
// Ready=False once their respective threshold is exceeded, so a blip that
// resolves itself within a few attempts never flaps the condition.
func (r *Reconciler) fail(mc *v1alpha1.SecretManagerConfig, stage string, err error, reconcileInterval time.Duration) (ctrl.Result, error) {
	kind := Classify(err)
	metrics.ErrorsTotal.WithLabelValues(stage, string(kind)).Inc()
	mc.Status.FailureCount++

	requeueAfter := reconcileInterval
	surface := true

	switch kind {
	case KindTransientInfra:
		requeueAfter = backoffDelay(mc.Status.FailureCount, DefaultBackoffStart, DefaultBackoffMax)
		surface = mc.Status.FailureCount > transientInfraThreshold
	case KindCorruptArtifact:
		requeueAfter = backoffDelay(mc.Status.FailureCount, DefaultBackoffStart, DefaultBackoffMax)
		surface = mc.Status.FailureCount > corruptArtifactThreshold
	case KindUserError, KindFatal:
		surface = true
	}

	mc.Status.Description = fmt.Sprintf("%s: %v", stage, err)
	if surface {
		mc.Status.Phase = v1alpha1.PhaseError
		mc.Status.Conditions = status.Set(mc.Status.Conditions, status.ReadyFalse(reasonForKind(kind, stage), err.Error()))
	} else {
		mc.Status.Phase = v1alpha1.PhaseSyncing
	}

	metrics.RequeuesTotal.WithLabelValues(requeueReason(kind)).Inc()
	return ctrl.Result{RequeueAfter: requeueAfter}, nil
}

// reasonForKind picks the Ready=False reason: §7 names UserError and
// InternalError explicitly; transient-infra and corrupt-artifact keep the
// stage-scoped reason since they can surface from any stage.
func reasonForKind(kind ErrorKind, stage string) string {
	switch kind {
	case KindUserError:
		return "UserError"
	case KindFatal:
		return "InternalError"
	default:
		return stageReason(stage)
	}
}

func requeueReason(kind ErrorKind) string {
	switch kind {
	case KindTransientInfra, KindCorruptArtifact:
		return "backoff"
	default:
		return "normal-interval"
	}
}

func stageReason(stage string) string {
	switch stage {
	case "fetching":
		return "FetchFailed"
	case "parsing":
		return "ParseFailed"
	case "decrypting":
		return "DecryptFailed"
	case "planning":
		return "PlanFailed"
	case "publishing":
		return "PublishFailed"
	case "reconciling":
		return "InternalError"
	default:
		return "Failed"
	}
}

func clamp(d, min time.Duration) time.Duration {
	if d < min {
		return min
	}
	return d
}
