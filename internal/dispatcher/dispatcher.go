// Package dispatcher decides, per incoming query, whether to start a one-shot
// batch job, submit a statement into an interactive session, or perform a
// local index-lifecycle side effect represented as a synthetic job, and
// reconciles the resulting state back to pollers.
package dispatcher

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/glintql/dispatch-api/internal/compute"
	"github.com/glintql/dispatch-api/internal/datasource"
	"github.com/glintql/dispatch-api/internal/index"
	"github.com/glintql/dispatch-api/internal/models"
	"github.com/glintql/dispatch-api/internal/queryclass"
	"github.com/glintql/dispatch-api/internal/results"
	"github.com/glintql/dispatch-api/internal/session"
)

// Tag keys stamped onto every job submission.
const (
	tagCluster    = "cluster"
	tagDatasource = "datasource"
	tagIndex      = "index"
	tagTable      = "table"
	tagSchema     = "schema"
)

// dispatchKind is the closed set of routing variants. Classification runs
// once per dispatch; handlers never re-derive intent.
type dispatchKind int

const (
	kindBatch dispatchKind = iota
	kindInteractive
	kindCreateIndex
	kindDropIndex
)

type Dispatcher struct {
	jobClient   compute.Client
	datasources datasource.Service
	authorizer  datasource.Authorizer
	results     results.Reader
	indexMeta   index.MetadataReader
	indexStore  index.Store
	sessions    *session.Manager
	classifier  queryclass.Classifier
	logger      zerolog.Logger
}

func New(
	jobClient compute.Client,
	datasources datasource.Service,
	authorizer datasource.Authorizer,
	resultReader results.Reader,
	indexMeta index.MetadataReader,
	indexStore index.Store,
	sessions *session.Manager,
	classifier queryclass.Classifier,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		jobClient:   jobClient,
		datasources: datasources,
		authorizer:  authorizer,
		results:     resultReader,
		indexMeta:   indexMeta,
		indexStore:  indexStore,
		sessions:    sessions,
		classifier:  classifier,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch classifies the request and routes it to one of the four handling
// paths. Authorization of the target datasource precedes any side effect on
// every path.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchQueryRequest) (models.DispatchQueryResponse, error) {
	kind, details, err := d.classify(req)
	if err != nil {
		return models.DispatchQueryResponse{}, err
	}

	meta, err := d.datasources.Raw(ctx, req.Datasource)
	if err != nil {
		return models.DispatchQueryResponse{}, err
	}
	if err := d.authorizer.Authorize(ctx, meta); err != nil {
		return models.DispatchQueryResponse{}, err
	}

	switch kind {
	case kindDropIndex:
		return d.dispatchDropIndex(ctx, req, details, meta)
	case kindCreateIndex:
		return d.dispatchCreateIndex(ctx, req, details, meta)
	case kindInteractive:
		return d.dispatchInteractive(ctx, req, meta)
	default:
		return d.dispatchBatch(ctx, req, meta)
	}
}

// classify produces the routing variant. PPL never gets index-aware handling
// and short-circuits to the non-index path.
func (d *Dispatcher) classify(req models.DispatchQueryRequest) (dispatchKind, queryclass.IndexDetails, error) {
	if req.LangType != models.LangSQL {
		return d.nonIndexKind(), queryclass.IndexDetails{}, nil
	}
	if !d.classifier.IsIndexQuery(req.Query) {
		return d.nonIndexKind(), queryclass.IndexDetails{}, nil
	}
	details, err := d.classifier.Extract(req.Query)
	if err != nil {
		return 0, queryclass.IndexDetails{}, err
	}
	if details.Drop {
		return kindDropIndex, details, nil
	}
	return kindCreateIndex, details, nil
}

func (d *Dispatcher) nonIndexKind() dispatchKind {
	if d.sessions.Enabled() {
		return kindInteractive
	}
	return kindBatch
}

func (d *Dispatcher) dispatchCreateIndex(ctx context.Context, req models.DispatchQueryRequest, details queryclass.IndexDetails, meta datasource.Metadata) (models.DispatchQueryResponse, error) {
	tags := defaultTags(req)
	tags[tagIndex] = details.IndexName
	tags[tagTable] = details.Table.Table
	tags[tagSchema] = details.Table.Schema

	params := compute.NewSubmitParamsBuilder().
		Datasource(meta).
		StructuredStreaming(details.AutoRefresh).
		ExtraParameters(req.ExtraSubmitParams).
		Build()

	jobID, err := d.jobClient.StartJobRun(ctx, compute.StartJobRequest{
		Query:          req.Query,
		JobName:        req.ClusterName + ":" + "index-query",
		ApplicationID:  req.ApplicationID,
		ExecutionRole:  req.ExecutionRoleARN,
		SubmitParams:   params,
		Tags:           tags,
		Streaming:      details.AutoRefresh,
		ResultLocation: meta.ResultLocation,
	})
	if err != nil {
		return models.DispatchQueryResponse{}, errors.Wrap(err, "start index query job")
	}
	return models.DispatchQueryResponse{ID: jobID, ResultLocation: meta.ResultLocation}, nil
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, req models.DispatchQueryRequest, meta datasource.Metadata) (models.DispatchQueryResponse, error) {
	params := compute.NewSubmitParamsBuilder().
		Datasource(meta).
		ExtraParameters(req.ExtraSubmitParams).
		Build()

	jobID, err := d.jobClient.StartJobRun(ctx, compute.StartJobRequest{
		Query:          req.Query,
		JobName:        req.ClusterName + ":" + "non-index-query",
		ApplicationID:  req.ApplicationID,
		ExecutionRole:  req.ExecutionRoleARN,
		SubmitParams:   params,
		Tags:           defaultTags(req),
		ResultLocation: meta.ResultLocation,
	})
	if err != nil {
		return models.DispatchQueryResponse{}, errors.Wrap(err, "start batch query job")
	}
	return models.DispatchQueryResponse{ID: jobID, ResultLocation: meta.ResultLocation}, nil
}

func (d *Dispatcher) dispatchInteractive(ctx context.Context, req models.DispatchQueryRequest, meta datasource.Metadata) (models.DispatchQueryResponse, error) {
	var sess *session.Session
	if req.SessionID != "" {
		existing, ok := d.sessions.Session(session.SessionID(req.SessionID))
		if !ok {
			return models.DispatchQueryResponse{}, errors.Wrapf(session.ErrSessionNotFound, "%s", req.SessionID)
		}
		sess = existing
	} else {
		params := compute.NewSubmitParamsBuilder().
			ClassName(session.RunnerClassName).
			Datasource(meta).
			ExtraParameters(req.ExtraSubmitParams).
			Build()
		created, err := d.sessions.CreateSession(ctx, session.CreateSessionRequest{
			JobName:        req.ClusterName + ":" + "non-index-query",
			ApplicationID:  req.ApplicationID,
			ExecutionRole:  req.ExecutionRoleARN,
			SubmitParams:   params,
			Tags:           defaultTags(req),
			ResultLocation: meta.ResultLocation,
			DatasourceName: meta.Name,
		})
		if err != nil {
			return models.DispatchQueryResponse{}, err
		}
		sess = created
	}

	st := sess.Submit(session.QueryRequest{LangType: req.LangType, Query: req.Query})
	return models.DispatchQueryResponse{
		ID:             string(st.ID()),
		ResultLocation: meta.ResultLocation,
		SessionID:      string(sess.ID()),
	}, nil
}

func defaultTags(req models.DispatchQueryRequest) map[string]string {
	return map[string]string{
		tagCluster:    req.ClusterName,
		tagDatasource: req.Datasource,
	}
}
