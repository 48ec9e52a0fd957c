package models

import (
	"fmt"
	"strings"
)

// ProjectType is the closed set of project kinds an interview can target.
type ProjectType string

const (
	ProjectTypeWeb     ProjectType = "web"
	ProjectTypeMobile  ProjectType = "mobile"
	ProjectTypeDesktop ProjectType = "desktop"
	ProjectTypeAPI     ProjectType = "api"
	ProjectTypeOther   ProjectType = "other"
)

// AllProjectTypes lists every ProjectType in declaration order.
var AllProjectTypes = []ProjectType{
	ProjectTypeWeb,
	ProjectTypeMobile,
	ProjectTypeDesktop,
	ProjectTypeAPI,
	ProjectTypeOther,
}

// projectTypeAliases maps legacy client values onto the closed set.
var projectTypeAliases = map[string]ProjectType{
	"web_app":    ProjectTypeWeb,
	"mobile_app": ProjectTypeMobile,
	"backend":    ProjectTypeAPI,
}

// ParseProjectType validates a wire value. Matching is case-insensitive and
// accepts the web_app, mobile_app and backend aliases.
func ParseProjectType(s string) (ProjectType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := projectTypeAliases[normalized]; ok {
		return alias, nil
	}
	candidate := ProjectType(normalized)
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid project_type %q (expected one of web, mobile, desktop, api, other)", s)
}

// Valid reports whether t is one of the declared project types.
func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeWeb, ProjectTypeMobile, ProjectTypeDesktop, ProjectTypeAPI, ProjectTypeOther:
		return true
	}
	return false
}

// OrOther returns t, or ProjectTypeOther when t is empty.
func (t ProjectType) OrOther() ProjectType {
	if t == "" {
		return ProjectTypeOther
	}
	return t
}
