package generation

// Default templates, used when the prompt store has no active version.
// Placeholders are {{key}}; the substitutions each operation supplies are
// listed in operations.go.

const (
	systemCopywriter = "You are a senior B2B sales copywriter. Write concise, specific, human-sounding copy. " +
		"Never invent facts about the recipient that were not provided."
	systemResearcher = "You are a sales research analyst. Use web search to verify facts about people and companies. " +
		"When a fact cannot be verified, leave the field out rather than guessing."
	systemAnalyst = "You are a business analyst. Infer a company's positioning from its website and description " +
		"and rate your confidence in each inference between 0 and 1."
	systemAdvisor = "You are a pragmatic sales pipeline advisor. Base every statement on the pipeline data provided " +
		"and keep answers short and actionable."
	systemEditor = "You are an editor who improves sales and marketing content for clarity, persuasion and tone."
)

const outreachTemplate = `Write a {{channel}} outreach message to the lead below.

Goal: {{goal}}
Tone: {{tone}}
Length: at most {{max_words}} words.

Lead:
{{lead}}

Return only the message text. Do not add a preamble or notes.`

const emailSequenceTemplate = `Write a cold email sequence of exactly {{steps}} emails to the lead below.

Goal: {{goal}}
Tone: {{tone}}
Space the emails about {{cadence_days}} days apart.

Lead:
{{lead}}

Format every email exactly like this and start each one with the separator line:
===EMAIL===
===FIELD===SUBJECT: subject line===END===
===FIELD===BODY: email body===END===
===FIELD===DELAY: days after the previous email===END===
===FIELD===TONE: tone of this email===END===`

const leadResearchTemplate = `Research the lead below and their company.

Lead:
{{lead}}

Our website: {{our_website}}

Return each field on its own, in this exact format, and omit any field you cannot verify:
===FIELD===TITLE: current job title===END===
===FIELD===INDUSTRY: company industry===END===
===FIELD===EMPLOYEE_COUNT: approximate employee range===END===
===FIELD===LOCATION: city, country===END===
===FIELD===COMPANY_OVERVIEW: two or three sentences===END===
===FIELD===TALKING_POINTS: point one | point two | point three===END===
===FIELD===OUTREACH_ANGLE: the single best angle for a first message===END===
===FIELD===RISK_FACTORS: risk one | risk two===END===
===FIELD===MENTIONED_ON_WEBSITE: Yes or No, whether the lead's company appears on our website===END===
===FIELD===RESEARCH_BRIEF: a short paragraph summary for the sales rep===END===`

const businessAnalysisTemplate = `Analyse the business described below.

Website: {{website}}
Description: {{description}}

Reply with a single JSON object and nothing else, using this shape:
{
  "companyName": {"value": "", "confidence": 0.0},
  "industry": {"value": "", "confidence": 0.0},
  "description": {"value": "", "confidence": 0.0},
  "targetAudience": {"value": "", "confidence": 0.0},
  "valueProposition": {"value": "", "confidence": 0.0},
  "location": {"value": "", "confidence": 0.0},
  "tone": {"value": "", "confidence": 0.0},
  "products": {"value": [], "confidence": 0.0},
  "socialLinks": {"linkedin": "", "twitter": ""},
  "followUpQuestions": []
}`

const commandCenterTemplate = `Answer the sales rep's question using the pipeline snapshot below.

Question: {{question}}

Pipeline snapshot:
{{pipeline}}`

const pipelineStrategyTemplate = `Build a sales strategy for the next {{horizon_days}} days from the pipeline snapshot below.

Goal: {{goal}}

Pipeline snapshot:
{{pipeline}}

Return each list in this exact format, separating items with |:
===FIELD===RECOMMENDATIONS: item | item===END===
===FIELD===SPRINT_GOALS: item | item===END===
===FIELD===RISKS: item | item===END===
===FIELD===PRIORITY_ACTIONS: item | item===END===`

const blogTemplate = `Write a blog post about: {{topic}}

Audience: {{audience}}
Tone: {{tone}}
Target length: about {{words}} words.
Work these keywords in naturally: {{keywords}}

Use Markdown with a title and section headings.`

const contentImprovementsTemplate = `Suggest improvements to the {{content_type}} below.

Goal: {{goal}}

Content:
"""
{{content}}
"""

Reply with a JSON array and nothing else. Each element must look like:
{"type": "rewrite|add|remove", "category": "clarity|persuasion|tone|structure|seo", "title": "", "description": "",
 "originalText": "", "replacement": "", "impactLabel": "low|medium|high", "impactPercent": 0}`
