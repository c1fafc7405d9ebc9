package core

import "p3if/pkg/framework"

type (
	Pattern      = framework.Pattern
	PatternType  = framework.PatternType
	Relationship = framework.Relationship
	Issue        = framework.Issue
	Report       = framework.Report
	Severity     = framework.Severity
	RulesEngine  = framework.RulesEngine
	Document     = framework.Document
)

const (
	PatternProperty    = framework.PatternProperty
	PatternProcess     = framework.PatternProcess
	PatternPerspective = framework.PatternPerspective
)

const (
	SeverityError   = framework.SeverityError
	SeverityWarning = framework.SeverityWarning
	SeverityInfo    = framework.SeverityInfo
)
