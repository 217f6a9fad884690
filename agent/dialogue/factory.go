package dialogue

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/CURENT/pv-curve-llm/agent/config"
	"github.com/CURENT/pv-curve-llm/agent/curve"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/adapters"
	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
	"github.com/CURENT/pv-curve-llm/agent/retrieval"
)

// Factory wires a complete engine from configuration. The database handle is
// optional; without it the session store and the FTS retrieval source are
// skipped and everything runs in process.
type Factory struct {
	cfg    *config.Config
	db     *sql.DB
	logger zerolog.Logger

	// Provider overrides the config-selected backend; when set (or selected)
	// the classifier and extractor become provider-backed with the rules
	// implementations as fallback, and the question responder phrases
	// answers through it.
	Provider ports.Provider
}

func NewFactory(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, db: db, logger: logger}
}

// CreateEngine assembles the default engine: rules (or provider-backed)
// classification and extraction, ensemble retrieval, the local curve
// generator, and the configured ambient adapters.
func (f *Factory) CreateEngine() (*Engine, error) {
	if f.Provider == nil && f.cfg.Provider.Kind == config.ProviderStatic {
		f.Provider = adapters.NewStaticProvider()
	}

	retriever := f.createRetriever()
	classifier, extractor := f.createNLBoundary()

	generator := adapters.NewLocalCurveGenerator(curve.NewGenerator(f.cfg.Curve, nil))

	responders := map[ports.Label]Responder{
		ports.LabelQuestion:   NewQuestionResponder(retriever, f.Provider, f.cfg.Retrieval.K),
		ports.LabelParameter:  NewParameterResponder(extractor),
		ports.LabelGeneration: NewGenerationResponder(generator),
		ports.LabelAnalysis:   NewAnalysisResponder(retriever),
	}

	return NewEngine(f.cfg.Engine, f.cfg.History, Options{
		Classifier: classifier,
		Responders: responders,
		Store:      f.createStore(),
		Cache:      f.createCache(),
		Tracer:     f.createTracer(),
	})
}

func (f *Factory) createNLBoundary() (ports.Classifier, ports.Extractor) {
	rulesClassifier := adapters.NewRulesClassifier()
	rulesExtractor := adapters.NewRulesExtractor()
	if f.Provider == nil {
		return rulesClassifier, rulesExtractor
	}
	return adapters.NewProviderClassifier(f.Provider, rulesClassifier),
		adapters.NewProviderExtractor(f.Provider, rulesExtractor)
}

func (f *Factory) createRetriever() ports.Retriever {
	var fts *retrieval.FTSIndex
	if f.db != nil {
		fts = retrieval.NewFTSIndex(f.db)
	}
	return retrieval.NewEnsemble(f.cfg.Retrieval, retrieval.NewTermIndex(), fts)
}

func (f *Factory) createStore() ports.SessionStore {
	if f.db == nil || !f.cfg.Database.Enabled {
		return nil
	}
	return adapters.NewLibSQLSessionStore(f.db)
}

func (f *Factory) createCache() ports.Cache {
	if !f.cfg.Engine.CacheEnabled {
		return nil
	}
	return adapters.NewLRUCache(f.cfg.Engine.CacheCapacity)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Engine.EnableTracing {
		return nil
	}
	return adapters.NewZerologTracer(f.logger)
}
