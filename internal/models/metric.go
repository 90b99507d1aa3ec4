package models

type EntityType string

const (
	EntityAccount EntityType = "account"
	EntityPost    EntityType = "post"
	EntityStory   EntityType = "story"
	EntityVideo   EntityType = "video"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityAccount, EntityPost, EntityStory, EntityVideo:
		return true
	}
	return false
}

type MetricDefinition struct {
	EntityType EntityType
	Name       string
}

type DeprecatedMetric struct {
	Old         string
	Replacement string
}
