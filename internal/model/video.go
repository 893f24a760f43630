package model

// FormatType is the coarse video format tier.
type FormatType string

const (
	FormatShort FormatType = "short"
	FormatMid   FormatType = "mid"
	FormatLong  FormatType = "long"
)

// AllFormatTypes returns the valid format tiers in ascending duration order.
func AllFormatTypes() []FormatType {
	return []FormatType{FormatShort, FormatMid, FormatLong}
}

// TrendCandidate is an upstream topic candidate selected for planning.
// Produced by the trend-selection collaborators; read-only context here.
type TrendCandidate struct {
	Topic         string  `json:"topic"`
	Vertical      string  `json:"vertical"`
	MomentumScore float64 `json:"momentum_score"`
	Source        string  `json:"source"`
}

// Workspace carries the per-channel configuration every agent receives as
// opaque context.
type Workspace struct {
	VerticalID     string  `json:"vertical_id" yaml:"vertical_id"`
	BrandTone      string  `json:"brand_tone" yaml:"brand_tone"`
	CPMBaseline    float64 `json:"cpm_baseline" yaml:"cpm_baseline"`
	TargetLanguage string  `json:"target_language" yaml:"target_language"`
}

// DurationProposal is the Duration Strategist's independent duration bid.
// Immutable after creation; consumed only by the format reconciler.
type DurationProposal struct {
	TargetDurationSeconds int        `json:"target_duration_seconds"`
	FormatType            FormatType `json:"format_type"`
	ContentDepthScore     float64    `json:"content_depth_score"`
	ViralPotentialScore   float64    `json:"viral_potential_score"`
	MonetizationStrategy  string     `json:"monetization_strategy"`
	Reasoning             string     `json:"reasoning"`
}

// EditorialFormat is the editorial treatment of the topic.
type EditorialFormat string

const (
	EditorialTutorial   EditorialFormat = "tutorial"
	EditorialAnalysis   EditorialFormat = "analysis"
	EditorialAlert      EditorialFormat = "alert"
	EditorialComparison EditorialFormat = "comparison"
)

// AllEditorialFormats returns the valid editorial formats.
func AllEditorialFormats() []EditorialFormat {
	return []EditorialFormat{EditorialTutorial, EditorialAnalysis, EditorialAlert, EditorialComparison}
}

// EditorialAngle is the narrative angle of the topic.
type EditorialAngle string

const (
	AngleRisk        EditorialAngle = "risk"
	AngleOpportunity EditorialAngle = "opportunity"
	AngleEducation   EditorialAngle = "education"
	AngleHistory     EditorialAngle = "history"
)

// AllEditorialAngles returns the valid editorial angles.
func AllEditorialAngles() []EditorialAngle {
	return []EditorialAngle{AngleRisk, AngleOpportunity, AngleEducation, AngleHistory}
}

// MonetizationPath is how the video converts attention downstream.
type MonetizationPath string

const (
	PathLeadMagnet     MonetizationPath = "lead_magnet"
	PathPlaylist       MonetizationPath = "playlist"
	PathCommentTrigger MonetizationPath = "comment_trigger"
	PathExternal       MonetizationPath = "external"
)

// AllMonetizationPaths returns the valid monetization paths.
func AllMonetizationPaths() []MonetizationPath {
	return []MonetizationPath{PathLeadMagnet, PathPlaylist, PathCommentTrigger, PathExternal}
}

// EditorialProposal is the Editorial Strategist's independent strategic
// decision, including its own duration bid and breakdown.
// Immutable after creation; consumed only by the format reconciler.
type EditorialProposal struct {
	DurationTarget    int              `json:"duration_target"`
	DurationBreakdown map[string]int   `json:"duration_breakdown"` // hook/context/insight/cta → seconds
	SerieConcept      string           `json:"serie_concept"`
	Format            EditorialFormat  `json:"format"`
	Angle             EditorialAngle   `json:"angle"`
	MonetizationPath  MonetizationPath `json:"monetization_path"`
	ReasoningSummary  string           `json:"reasoning_summary"`
}

// ArbitrationSource records which proposal (or compromise) won reconciliation.
type ArbitrationSource string

const (
	SourceEditorialStrategist ArbitrationSource = "editorial_strategist"
	SourceDurationStrategist  ArbitrationSource = "duration_strategist"
	SourceCompromise          ArbitrationSource = "compromise"
	SourceDurationFallback    ArbitrationSource = "duration_strategist_fallback"
)

// Timeline is the single reconciled duration/format decision. Every
// downstream duration-dependent agent treats it as authoritative and
// read-only; a stage that needs a different duration must create a new
// Timeline, never edit this one.
type Timeline struct {
	ReconciledDuration       int               `json:"reconciled_duration"` // seconds, [15,1200]
	FormatType               FormatType        `json:"format_type"`
	AspectRatio              string            `json:"aspect_ratio"`
	ArbitrationSource        ArbitrationSource `json:"arbitration_source"`
	EditorialWeight          float64           `json:"editorial_weight"`
	DurationWeight           float64           `json:"duration_weight"`
	ArbitrationReasoning     string            `json:"arbitration_reasoning"`
	EditorialDurationOrig    int               `json:"editorial_duration_original"`
	DurationStrategyOrig     int               `json:"duration_strategy_original"`
	DurationBreakdown        map[string]int    `json:"duration_breakdown,omitempty"`
}

// ContentDepthStrategy decides how many narrative bullets the reconciled
// duration can sustain and how time and depth distribute across them.
type ContentDepthStrategy struct {
	RecommendedBullets int       `json:"recommended_bullets"` // [2,10]
	TimePerBullet      []int     `json:"time_per_bullet"`     // len == RecommendedBullets
	DepthScores        []float64 `json:"depth_scores"`        // len == RecommendedBullets, each [0,1]
	PacingGuidance     string    `json:"pacing_guidance"`
	Reasoning          string    `json:"reasoning"`
	AdequacyScore      float64   `json:"adequacy_score"`
}

// NarrativeAct is one act of the narrative arc.
type NarrativeAct struct {
	ActName         string `json:"act_name"`
	DurationSeconds int    `json:"duration_seconds"`
	EmotionalBeat   string `json:"emotional_beat"`
	Voiceover       string `json:"voiceover"`
	RetentionTactic string `json:"retention_tactic"`
}

// EmotionalBeat is a cumulative-time-indexed beat derived from the acts.
type EmotionalBeat struct {
	AtSeconds int    `json:"at_seconds"`
	Beat      string `json:"beat"`
}

// NarrativeArc is the act-by-act script. FullVoiceover and EmotionalBeats
// are derived from the acts and must be recomputed whenever the acts change
// (the expansion loop does this on every retry).
type NarrativeArc struct {
	Acts             []NarrativeAct  `json:"narrative_structure"`
	VoicePersonality string          `json:"voice_personality"`
	RetentionHooks   []string        `json:"retention_hooks"`
	PacingNotes      string          `json:"pacing_notes"`
	EmotionalJourney string          `json:"emotional_journey"`
	FullVoiceover    string          `json:"full_voiceover"`
	EmotionalBeats   []EmotionalBeat `json:"emotional_beats"`
}

// CTAPlan is the call-to-action plan derived from the Timeline.
type CTAPlan struct {
	Placement        string           `json:"placement"` // e.g. "outro", "midroll"
	AtSeconds        int              `json:"at_seconds"`
	Script           string           `json:"script"`
	MonetizationPath MonetizationPath `json:"monetization_path"`
	Reasoning        string           `json:"reasoning"`
}

// MonetizationAudit is the monetization QA verdict over a finished plan.
type MonetizationAudit struct {
	Passed     bool     `json:"passed"`
	Score      float64  `json:"score"` // [0,1]
	Findings   []string `json:"findings"`
	Reasoning  string   `json:"reasoning"`
}

// FormatCheck is a single format-consistency finding.
type FormatCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// FormatConsistencyReport aggregates deterministic consistency checks of
// the narrative plan against the Timeline.
type FormatConsistencyReport struct {
	Consistent bool          `json:"consistent"`
	Checks     []FormatCheck `json:"checks"`
}

// VideoPlan is the finalized output of the planning pipeline.
type VideoPlan struct {
	Candidate   TrendCandidate          `json:"candidate"`
	Duration    DurationProposal        `json:"duration_proposal"`
	Editorial   EditorialProposal       `json:"editorial_proposal"`
	Timeline    Timeline                `json:"timeline"`
	Depth       ContentDepthStrategy    `json:"content_depth"`
	Narrative   NarrativeArc            `json:"narrative"`
	CTA         CTAPlan                 `json:"cta"`
	Audit       MonetizationAudit       `json:"monetization_audit"`
	Consistency FormatConsistencyReport `json:"format_consistency"`
}
