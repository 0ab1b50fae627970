package domain

// SelectorType is how the author typed a selector in the form.
type SelectorType string

const (
	SelectorCSS    SelectorType = "css"
	SelectorXPath  SelectorType = "xpath"
	SelectorText   SelectorType = "text"
	SelectorRole   SelectorType = "role"
	SelectorTestID SelectorType = "testid"
)

// ValueSource says whether a draft field holds a literal or names a variable.
type ValueSource string

const (
	SourceLiteral  ValueSource = "literal"
	SourceVariable ValueSource = "variable"
)

// DraftStep is the authoring-time form of a step. It carries the UI-only
// fields (selector type, variable bindings, raw header text) that are
// resolved away by compiler.Lower and never reach Step.
type DraftStep struct {
	Type StepType `json:"type"`

	SelectorType SelectorType `json:"selectorType,omitempty"`
	Selector     string       `json:"selector,omitempty"`

	URL       string      `json:"url,omitempty"`
	URLSource ValueSource `json:"urlSource,omitempty"`
	URLVar    string      `json:"urlVar,omitempty"`

	Value       string      `json:"value,omitempty"`
	ValueSource ValueSource `json:"valueSource,omitempty"`
	ValueVar    string      `json:"valueVar,omitempty"`

	Text       string      `json:"text,omitempty"`
	TextSource ValueSource `json:"textSource,omitempty"`
	TextVar    string      `json:"textVar,omitempty"`

	Message       string      `json:"message,omitempty"`
	MessageSource ValueSource `json:"messageSource,omitempty"`
	MessageVar    string      `json:"messageVar,omitempty"`

	Ms   int    `json:"ms,omitempty"`
	Name string `json:"name,omitempty"`

	Method               string      `json:"method,omitempty"`
	Headers              string      `json:"headers,omitempty"` // JSON object text
	Body                 string      `json:"body,omitempty"`
	BodySource           ValueSource `json:"bodySource,omitempty"`
	BodyVar              string      `json:"bodyVar,omitempty"`
	ExpectedStatus       *int        `json:"expectedStatus,omitempty"`
	ExpectedBodyContains string      `json:"expectedBodyContains,omitempty"`
}

// DraftTest is a test as edited in the authoring UI.
type DraftTest struct {
	ID         string            `json:"id"`
	Identifier string            `json:"identifier,omitempty"`
	Name       string            `json:"name"`
	BaseURL    string            `json:"baseURL"`
	Steps      []DraftStep       `json:"steps"`
	Variables  map[string]string `json:"variables,omitempty"`
	Artifacts  *ArtifactPolicy   `json:"artifacts,omitempty"`
}
