// Package export renders engine metadata into downstream formats, currently
// an OpenAPI document describing the generated entity API surface.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/trestlehq/trestle/internal/metadata"
	"github.com/trestlehq/trestle/internal/schema"
)

// Info titles the exported document.
type Info struct {
	Title       string
	Version     string
	Description string
}

// OpenAPI builds an OpenAPI 3 document from a metadata snapshot: one
// component schema per entity and relationship, and CRUD paths per entity.
func OpenAPI(snap *metadata.Snapshot, info Info) (*openapi3.T, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	if info.Title == "" {
		info.Title = "Trestle Entity API"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}

	for _, name := range sortedKeys(snap.Entities) {
		entity := snap.Entities[name]
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", entitySchema(entity))
		addEntityPaths(doc, entity)
	}
	for _, name := range sortedKeys(snap.Relationships) {
		rel := snap.Relationships[name]
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", relationshipSchema(rel))
	}
	return doc, nil
}

func entitySchema(entity *schema.Entity) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Description = fmt.Sprintf("%s record, stored in table %s", entity.Name, entity.Table)
	var required []string
	for _, field := range entity.Fields.Fields() {
		out.WithProperty(field.Name, fieldSchema(field))
		if field.Required && !field.ReadOnly {
			required = append(required, field.Name)
		}
	}
	out.Required = required
	return out
}

func relationshipSchema(rel *schema.Relationship) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Description = fmt.Sprintf("%s relationship (%s), stored in table %s",
		rel.Name, rel.Type, rel.Table)
	if rel.Fields != nil {
		for _, field := range rel.Fields.Fields() {
			out.WithProperty(field.Name, fieldSchema(field))
		}
	}
	return out
}

func fieldSchema(field *schema.FieldDescriptor) *openapi3.Schema {
	var out *openapi3.Schema
	switch field.Kind {
	case schema.KindID:
		out = openapi3.NewStringSchema()
	case schema.KindText, schema.KindBigText:
		out = openapi3.NewStringSchema()
	case schema.KindEmail:
		out = openapi3.NewStringSchema().WithFormat("email")
	case schema.KindPassword:
		out = openapi3.NewStringSchema().WithFormat("password")
	case schema.KindInteger:
		out = openapi3.NewInt64Schema()
	case schema.KindFloat:
		out = openapi3.NewFloat64Schema()
	case schema.KindBoolean:
		out = openapi3.NewBoolSchema()
	case schema.KindDate:
		out = openapi3.NewStringSchema().WithFormat("date")
	case schema.KindDateTime:
		out = openapi3.NewDateTimeSchema()
	case schema.KindEnum, schema.KindRadioButtonSet:
		out = openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			out.WithEnum(toAnySlice(field.Options)...)
		}
	case schema.KindMultiEnum:
		item := openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			item.WithEnum(toAnySlice(field.Options)...)
		}
		out = openapi3.NewArraySchema().WithItems(item)
	case schema.KindRelatedRecord:
		out = openapi3.NewStringSchema()
		if field.RelatedModel != "" {
			out.Description = fmt.Sprintf("Identifier of a %s record", field.RelatedModel)
		}
	case schema.KindImage, schema.KindVideo:
		out = openapi3.NewStringSchema().WithFormat("uri")
	default:
		out = openapi3.NewStringSchema()
	}
	if out.Description == "" && field.Label != "" {
		out.Description = field.Label
	}
	out.ReadOnly = field.ReadOnly
	return out
}

func addEntityPaths(doc *openapi3.T, entity *schema.Entity) {
	ref := fmt.Sprintf("#/components/schemas/%s", entity.Name)
	collection := "/api/" + entity.Table
	item := collection + "/{id}"

	listSchema := openapi3.NewArraySchema()
	listSchema.Items = openapi3.NewSchemaRef(ref, nil)
	listResponse := openapi3.NewResponse().
		WithDescription(fmt.Sprintf("List of %s records", entity.Name))
	listResponse.Content = openapi3.NewContentWithJSONSchema(listSchema)

	recordResponse := func(desc string) *openapi3.Response {
		r := openapi3.NewResponse().WithDescription(desc)
		r.Content = openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil))
		return r
	}

	doc.Paths.Set(collection, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "list" + entity.Name,
			Summary:     fmt.Sprintf("List %s records", entity.Name),
			Parameters:  listParameters(entity),
			Responses:   responses("200", listResponse),
		},
		Post: &openapi3.Operation{
			OperationID: "create" + entity.Name,
			Summary:     fmt.Sprintf("Create a %s record", entity.Name),
			RequestBody: jsonBody(ref),
			Responses:   responses("201", recordResponse("Created record")),
		},
	})
	doc.Paths.Set(item, &openapi3.PathItem{
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()),
			},
		},
		Get: &openapi3.Operation{
			OperationID: "get" + entity.Name,
			Summary:     fmt.Sprintf("Fetch one %s record", entity.Name),
			Responses:   responses("200", recordResponse("The record")),
		},
		Patch: &openapi3.Operation{
			OperationID: "update" + entity.Name,
			Summary:     fmt.Sprintf("Update a %s record", entity.Name),
			RequestBody: jsonBody(ref),
			Responses:   responses("200", recordResponse("Updated record")),
		},
		Delete: &openapi3.Operation{
			OperationID: "delete" + entity.Name,
			Summary:     fmt.Sprintf("Soft-delete a %s record", entity.Name),
			Responses:   responses("204", openapi3.NewResponse().WithDescription("Record deleted")),
		},
	})
}

// listParameters exposes the entity's configured list surface: sortable
// columns become the sort enum, searchable columns enable the q parameter.
func listParameters(entity *schema.Entity) openapi3.Parameters {
	params := openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("page").WithSchema(openapi3.NewIntegerSchema().WithMin(1)),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("perPage").WithSchema(openapi3.NewIntegerSchema().WithMin(1)),
		},
	}
	if entity.List == nil {
		return params
	}
	if len(entity.List.Sortable) > 0 {
		var values []any
		for _, column := range entity.List.Sortable {
			values = append(values, column, "-"+column)
		}
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("sort").
				WithSchema(openapi3.NewStringSchema().WithEnum(values...)),
		})
	}
	if len(entity.List.Searchable) > 0 {
		param := openapi3.NewQueryParameter("q").WithSchema(openapi3.NewStringSchema())
		param.Description = fmt.Sprintf("Free-text search across %s",
			strings.Join(entity.List.Searchable, ", "))
		params = append(params, &openapi3.ParameterRef{Value: param})
	}
	return params
}

func jsonBody(ref string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithContent(openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil))),
	}
}

func responses(status string, response *openapi3.Response) *openapi3.Responses {
	out := openapi3.NewResponses()
	out.Set(status, &openapi3.ResponseRef{Value: response})
	return out
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
