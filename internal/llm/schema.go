package llm

import (
	"github.com/xeipuuv/gojsonschema"
)

// lessonShapeSchema accepts any object carrying at least one of the keys
// every generated lesson has.
const lessonShapeSchema = `{
	"type": "object",
	"anyOf": [
		{"required": ["subject"]},
		{"required": ["phases"]},
		{"required": ["strand"]}
	]
}`

var lessonShape = mustSchema(lessonShapeSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

// looksLikeLesson reports whether raw is a lesson-shaped object.
func looksLikeLesson(raw []byte) bool {
	res, err := lessonShape.Validate(gojsonschema.NewBytesLoader(raw))
	return err == nil && res.Valid()
}
