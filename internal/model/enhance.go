package model

// OwnerType identifies who is billed for a generation.
type OwnerType string

const (
	OwnerTypeUser  OwnerType = "user"
	OwnerTypeGuest OwnerType = "guest"
)

// Valid reports whether the owner type is known.
func (t OwnerType) Valid() bool {
	return t == OwnerTypeUser || t == OwnerTypeGuest
}

// Owner is the quota and billing identity of a request.
type Owner struct {
	Type OwnerType `json:"type"`
	ID   string    `json:"id"`
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.Type == OwnerTypeUser
}

func (o Owner) String() string {
	return string(o.Type) + ":" + o.ID
}

// ProviderKind is the provider family a model is served by.
type ProviderKind string

const (
	ProviderKindInProcess ProviderKind = "in-process"
	ProviderKindRemoteJob ProviderKind = "remote-job"
)

// Pricing holds the credit price components of a model.
type Pricing struct {
	Base        float64 `yaml:"base" json:"base"`
	Scale4      float64 `yaml:"scale4" json:"scale4"`
	FaceEnhance float64 `yaml:"face_enhance" json:"face_enhance"`
}

// ModelDescriptor describes an enhancement model. Descriptors are loaded once
// from the catalog and never mutated.
type ModelDescriptor struct {
	Slug                string         `yaml:"slug" json:"slug"`
	Name                string         `yaml:"name" json:"name"`
	Provider            ProviderKind   `yaml:"provider" json:"provider"`
	ProviderModel       string         `yaml:"provider_model" json:"-"`
	SupportsScale       bool           `yaml:"supports_scale" json:"supports_scale"`
	SupportsFaceEnhance bool           `yaml:"supports_face_enhance" json:"supports_face_enhance"`
	SupportsPrompt      bool           `yaml:"supports_prompt" json:"supports_prompt"`
	MaxScale            int            `yaml:"max_scale" json:"max_scale"`
	DefaultParams       map[string]any `yaml:"default_params" json:"-"`
	Pricing             Pricing        `yaml:"pricing" json:"pricing"`
}

// Identifier returns the model identifier sent to the provider.
func (m *ModelDescriptor) Identifier() string {
	if m.ProviderModel != "" {
		return m.ProviderModel
	}
	return m.Slug
}

// UploadedFile is the raw upload attached to a generation request.
type UploadedFile struct {
	Name         string
	Data         []byte
	DeclaredType string
}

// GenerationRequest is one call to Generate. Pointer fields are optional.
type GenerationRequest struct {
	Owner         Owner
	ModelSlug     string
	File          UploadedFile
	RequestOrigin string

	Scale          *int
	FaceEnhance    *bool
	Prompt         string
	NegativePrompt string
	Strength       *float64
	Guidance       *float64
	Steps          *int

	// Overrides supplied by plan-aware callers.
	LimitOverride            *int
	MonthlyLimitOverride     *float64
	MaxUpscaleOverride       *int
	AllowFaceEnhanceOverride *bool
}

// ProviderInput is what a provider adapter receives for one attempt.
type ProviderInput struct {
	Image          []byte
	ContentType    string
	ImageURL       string
	Scale          int
	FaceEnhance    bool
	Prompt         string
	NegativePrompt string
	Strength       *float64
	Guidance       *float64
	Steps          *int
}

// ImageOutput is a normalized provider result.
type ImageOutput struct {
	Data        []byte
	ContentType string
}

// Size returns the byte length of the image.
func (o *ImageOutput) Size() int {
	if o == nil {
		return 0
	}
	return len(o.Data)
}

// Charge is the price of a generation split between plan allowance and credits.
type Charge struct {
	Total          float64 `json:"total"`
	PlanPortion    float64 `json:"plan_portion"`
	CreditsPortion float64 `json:"credits_portion"`
}

// PlanTenths returns the plan portion in credit tenths.
func (c Charge) PlanTenths() int64 {
	return ToTenths(c.PlanPortion)
}

// CreditsTenths returns the credits portion in credit tenths.
func (c Charge) CreditsTenths() int64 {
	return ToTenths(c.CreditsPortion)
}

// GenerationUsage reports the owner's quota state after a generation.
type GenerationUsage struct {
	Daily          QuotaUsage `json:"daily"`
	Monthly        QuotaUsage `json:"monthly"`
	CreditsBalance *float64   `json:"credits_balance,omitempty"`
}

// GenerationResult is returned by Generate.
type GenerationResult struct {
	ModelSlug   string           `json:"model"`
	OriginalURL string           `json:"original_url"`
	ImageURL    string           `json:"image_url"`
	Usage       *GenerationUsage `json:"usage"`
	Charge      Charge           `json:"charge"`
}
