package graph

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/VitaminP8/blogexpress/graph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

func loadSchema(t *testing.T) *ast.Schema {
	t.Helper()

	data, err := os.ReadFile("schema.graphqls")
	require.NoError(t, err)

	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: string(data)})
	require.NoError(t, err)
	return schema
}

func goName(field string) string {
	return strings.ToUpper(field[:1]) + field[1:]
}

func TestSchema_RootFieldsHaveResolvers(t *testing.T) {
	schema := loadSchema(t)
	r := &Resolver{}

	roots := map[*ast.Definition]interface{}{
		schema.Query:        r.Query(),
		schema.Mutation:     r.Mutation(),
		schema.Subscription: r.Subscription(),
	}

	for def, resolver := range roots {
		typ := reflect.TypeOf(resolver)
		for _, field := range def.Fields {
			if strings.HasPrefix(field.Name, "__") {
				continue
			}
			_, ok := typ.MethodByName(goName(field.Name))
			assert.True(t, ok, "%s.%s has no resolver method", def.Name, field.Name)
		}
	}
}

func TestSchema_FieldResolvers(t *testing.T) {
	schema := loadSchema(t)
	r := &Resolver{}

	cases := []struct {
		typeName string
		field    string
		resolver interface{}
	}{
		{"Post", "creator", r.Post()},
		{"User", "posts", r.User()},
	}

	for _, c := range cases {
		def := schema.Types[c.typeName]
		require.NotNil(t, def, c.typeName)
		require.NotNil(t, def.Fields.ForName(c.field), "%s.%s", c.typeName, c.field)

		_, ok := reflect.TypeOf(c.resolver).MethodByName(goName(c.field))
		assert.True(t, ok, "%s.%s has no field resolver", c.typeName, c.field)
	}
}

// Каждое поле типа схемы должно находить поле модели по json тегу
// или раскрываться отдельным резолвером.
func TestSchema_ModelsBindByJSONTag(t *testing.T) {
	schema := loadSchema(t)

	models := map[string]interface{}{
		"User":              model.User{},
		"Comment":           model.Comment{},
		"Reaction":          model.Reaction{},
		"Post":              model.Post{},
		"AuthData":          model.AuthData{},
		"RoleData":          model.RoleData{},
		"PostStatusData":    model.PostStatusData{},
		"CommentData":       model.CommentData{},
		"DeleteCommentData": model.DeleteCommentData{},
		"LikeData":          model.LikeData{},
		"UserInput":         model.UserInput{},
		"PostInput":         model.PostInput{},
		"CommentInput":      model.CommentInput{},
	}
	resolved := map[string]bool{"Post.creator": true, "User.posts": true}

	for name, m := range models {
		def := schema.Types[name]
		require.NotNil(t, def, name)

		tags := map[string]bool{}
		typ := reflect.TypeOf(m)
		for i := 0; i < typ.NumField(); i++ {
			tags[strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]] = true
		}

		for _, field := range def.Fields {
			if resolved[name+"."+field.Name] {
				continue
			}
			assert.True(t, tags[field.Name], "%s.%s is not bound to the model", name, field.Name)
		}
	}
}
