// Package openai provides the built-in embedding function backed by the
// OpenAI embeddings API. Any server speaking the same API (Azure OpenAI,
// Ollama, vLLM) can be used through the base_url and use_azure params.
package openai

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/pkg/types"
)

// Name is the registry key of this provider
const Name = "openai"

// APIKeyEnv is consulted when no api_key param is given
const APIKeyEnv = "OPENAI_API_KEY"

const (
	ModelAda002  = "text-embedding-ada-002"
	Model3Small  = "text-embedding-3-small"
	Model3Large  = "text-embedding-3-large"
	DefaultModel = ModelAda002
)

// Param keys understood by New
const (
	ParamAPIKey            = "api_key"
	ParamModel             = "model"
	ParamDim               = "dim"
	ParamBaseURL           = "base_url"
	ParamOrganization      = "organization"
	ParamUseAzure          = "use_azure"
	ParamAPIVersion        = "api_version"
	ParamRequestsPerMinute = "requests_per_minute"
)

func init() {
	embeddings.MustRegister(Name, func(p embeddings.Params) (embeddings.Function, error) {
		return New(p)
	})
}

var _ embeddings.Function = (*Embedder)(nil)

// Embedder implements embeddings.Function using the OpenAI API.
// It is safe for concurrent use.
type Embedder struct {
	apiKey       string
	model        string
	dim          int // Requested dimensions, 0 for the model default
	ndims        int
	baseURL      string
	organization string
	useAzure     bool
	apiVersion   string
	rpm          int
	limiter      *rate.Limiter

	clientOnce sync.Once
	client     *openai.Client
}

// New creates an OpenAI embedding function from params. The credential is
// taken from the api_key param or the OPENAI_API_KEY environment variable;
// without either, New fails before any network call.
func New(params embeddings.Params) (*Embedder, error) {
	e := &Embedder{}
	var err error

	if e.apiKey, err = params.String(ParamAPIKey); err != nil {
		return nil, err
	}
	if e.apiKey == "" {
		e.apiKey = os.Getenv(APIKeyEnv)
	}
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key required (set %s or pass %s)",
			embeddings.ErrConfiguration, APIKeyEnv, ParamAPIKey)
	}

	if e.model, err = params.String(ParamModel); err != nil {
		return nil, err
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.dim, err = params.Int(ParamDim); err != nil {
		return nil, err
	}
	if e.baseURL, err = params.String(ParamBaseURL); err != nil {
		return nil, err
	}
	if e.organization, err = params.String(ParamOrganization); err != nil {
		return nil, err
	}
	if e.useAzure, err = params.Bool(ParamUseAzure); err != nil {
		return nil, err
	}
	if e.apiVersion, err = params.String(ParamAPIVersion); err != nil {
		return nil, err
	}
	if e.rpm, err = params.Int(ParamRequestsPerMinute); err != nil {
		return nil, err
	}

	if e.useAzure && e.baseURL == "" {
		return nil, fmt.Errorf("%w: %s is required with %s", embeddings.ErrConfiguration, ParamBaseURL, ParamUseAzure)
	}
	if e.rpm < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", embeddings.ErrConfiguration, ParamRequestsPerMinute)
	}
	if e.rpm > 0 {
		e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(e.rpm)), 1)
	}

	if e.ndims, err = modelDimensions(e.model, e.dim); err != nil {
		return nil, err
	}

	return e, nil
}

// modelDimensions resolves the output length for a model and an optional
// requested dimension
func modelDimensions(model string, dim int) (int, error) {
	if dim < 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", embeddings.ErrConfiguration, ParamDim, dim)
	}
	switch model {
	case ModelAda002:
		if dim != 0 && dim != 1536 {
			return 0, fmt.Errorf("%w: %s does not support custom dimensions", embeddings.ErrConfiguration, model)
		}
		return 1536, nil
	case Model3Small:
		if dim > 0 {
			return dim, nil
		}
		return 1536, nil
	case Model3Large:
		if dim > 0 {
			return dim, nil
		}
		return 3072, nil
	default:
		// OpenAI-compatible servers host arbitrary models; the caller has to
		// tell us how long their vectors are.
		if dim > 0 {
			return dim, nil
		}
		return 0, fmt.Errorf("%w: unknown model %q, set %s", embeddings.ErrConfiguration, model, ParamDim)
	}
}

// getClient builds the API client on first use
func (e *Embedder) getClient() *openai.Client {
	e.clientOnce.Do(func() {
		var cfg openai.ClientConfig
		if e.useAzure {
			cfg = openai.DefaultAzureConfig(e.apiKey, e.baseURL)
			if e.apiVersion != "" {
				cfg.APIVersion = e.apiVersion
			}
		} else {
			cfg = openai.DefaultConfig(e.apiKey)
			if e.baseURL != "" {
				cfg.BaseURL = e.baseURL
			}
		}
		cfg.OrgID = e.organization
		e.client = openai.NewClientWithConfig(cfg)
	})
	return e.client
}

// Name returns the registry name
func (e *Embedder) Name() string {
	return Name
}

// Model returns the model name
func (e *Embedder) Model() string {
	return e.model
}

// Ndims returns the embedding vector dimensions
func (e *Embedder) Ndims() int {
	return e.ndims
}

// EmbeddingDataType returns float32, the element type of the API's vectors
func (e *Embedder) EmbeddingDataType() types.DataType {
	return types.Float32
}

// SourceField marks a column as the embedding source
func (e *Embedder) SourceField(base types.DataType) embeddings.FieldSpec {
	return embeddings.NewSourceField(e, base)
}

// VectorField marks a column as receiving this function's vectors
func (e *Embedder) VectorField() embeddings.FieldSpec {
	return embeddings.NewVectorField(e)
}

// Params returns the recreatable configuration, without the api key
func (e *Embedder) Params() embeddings.Params {
	p := embeddings.Params{ParamModel: e.model}
	if e.dim > 0 {
		p[ParamDim] = e.dim
	}
	if e.baseURL != "" {
		p[ParamBaseURL] = e.baseURL
	}
	if e.organization != "" {
		p[ParamOrganization] = e.organization
	}
	if e.useAzure {
		p[ParamUseAzure] = true
	}
	if e.apiVersion != "" {
		p[ParamAPIVersion] = e.apiVersion
	}
	if e.rpm > 0 {
		p[ParamRequestsPerMinute] = e.rpm
	}
	return p
}

// ComputeSourceEmbeddings generates embeddings for a batch of texts in one request
func (e *Embedder) ComputeSourceEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: openai: input %d is empty", embeddings.ErrProvider, i)
		}
	}
	return e.embed(ctx, texts)
}

// ComputeQueryEmbeddings generates the embedding for a single query string
func (e *Embedder) ComputeQueryEmbeddings(ctx context.Context, query any) ([]float32, error) {
	text, err := embeddings.QueryText(query)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: openai: query is empty", embeddings.ErrProvider)
	}
	out, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *Embedder) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: openai: waiting for rate limiter: %w", embeddings.ErrProvider, err)
		}
	}

	req := openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dim > 0 {
		req.Dimensions = e.dim
	}

	resp, err := e.getClient().CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", embeddings.ErrProvider, err)
	}

	return orderByIndex(resp.Data, len(inputs))
}

// orderByIndex places each returned embedding at its request position
func orderByIndex(data []openai.Embedding, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: openai: expected %d embeddings, got %d", embeddings.ErrProvider, n, len(data))
	}
	out := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("%w: openai: unexpected index %d", embeddings.ErrProvider, d.Index)
		}
		if out[d.Index] != nil {
			return nil, fmt.Errorf("%w: openai: duplicate index %d", embeddings.ErrProvider, d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: openai: empty embedding at index %d", embeddings.ErrProvider, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
