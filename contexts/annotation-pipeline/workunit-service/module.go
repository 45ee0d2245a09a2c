package workunitservice

import (
	"log/slog"

	httpadapter "hitloop/contexts/annotation-pipeline/workunit-service/adapters/http"
	"hitloop/contexts/annotation-pipeline/workunit-service/adapters/memory"
	"hitloop/contexts/annotation-pipeline/workunit-service/application/commands"
	"hitloop/contexts/annotation-pipeline/workunit-service/application/queries"
	"hitloop/contexts/annotation-pipeline/workunit-service/application/workers"
	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
	"hitloop/contexts/annotation-pipeline/workunit-service/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Issuer    commands.IssueWorkUnitsUseCase
	Reconcile workers.ReconcileJob
	Ingest    workers.IngestJob
	Store     *memory.Store
}

type Dependencies struct {
	Tasks         ports.TaskRepository
	WorkUnits     ports.WorkUnitRepository
	Annotations   ports.AnnotationRepository
	Events        ports.EventRecorder
	Marketplace   ports.MarketplaceClient
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Backend       entities.Backend
	Sandbox       bool
	PublicBaseURL string
	PollLimit     int
	IngestLimit   int
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	backend := deps.Backend
	if backend == "" {
		backend = entities.BackendMTurk
	}

	issuer := commands.IssueWorkUnitsUseCase{
		Tasks:       deps.Tasks,
		WorkUnits:   deps.WorkUnits,
		Events:      deps.Events,
		Marketplace: deps.Marketplace,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Backend:     backend,
		BaseURL:     deps.PublicBaseURL,
		Sandbox:     deps.Sandbox,
		Logger:      deps.Logger,
	}
	createAnnotation := commands.CreateAnnotationUseCase{
		Tasks:       deps.Tasks,
		WorkUnits:   deps.WorkUnits,
		Annotations: deps.Annotations,
		Events:      deps.Events,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Backend:     backend,
		Logger:      deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Tasks:       deps.Tasks,
		WorkUnits:   deps.WorkUnits,
		Annotations: deps.Annotations,
		Events:      deps.Events,
		Logger:      deps.Logger,
	}
	reconcile := workers.ReconcileJob{
		WorkUnits:   deps.WorkUnits,
		Events:      deps.Events,
		Marketplace: deps.Marketplace,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Backend:     backend,
		Sandbox:     deps.Sandbox,
		PollLimit:   deps.PollLimit,
		Logger:      deps.Logger,
	}
	ingest := workers.IngestJob{
		WorkUnits:   deps.WorkUnits,
		Annotations: deps.Annotations,
		Events:      deps.Events,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Backend:     backend,
		IngestLimit: deps.IngestLimit,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			CreateAnnotation: createAnnotation,
			Queries:          queryUseCase,
			Logger:           deps.Logger,
		},
		Issuer:    issuer,
		Reconcile: reconcile,
		Ingest:    ingest,
	}
}

func NewInMemoryModule(tasks []entities.Task, units []entities.WorkUnit, marketplace ports.MarketplaceClient, logger *slog.Logger) Module {
	store := memory.NewStore(tasks, units)
	if marketplace == nil {
		marketplace = memory.NewMarketplace()
	}
	module := NewModule(Dependencies{
		Tasks:         store,
		WorkUnits:     store,
		Annotations:   store,
		Events:        store,
		Marketplace:   marketplace,
		Clock:         store,
		IDGen:         store,
		Sandbox:       true,
		PublicBaseURL: "http://localhost:8080",
		Logger:        logger,
	})
	module.Store = store
	return module
}
