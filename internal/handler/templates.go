package handler

import "html/template"

const pageTemplate = `{{define "page.html"}}<!doctype html>
<html lang="{{.lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.title}}</title>
<style>:root{ {{.themeCSS}} }</style>
</head>
<body data-page="{{.slug}}">
{{.body}}
</body>
</html>{{end}}`

const notFoundTemplate = `{{define "not_found.html"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.title}}</title></head>
<body><main class="not-found"><h1>{{.title}}</h1><p>{{.message}}</p></main></body>
</html>{{end}}`

// Templates 返回公开页面使用的模板集合，路由通过 SetHTMLTemplate 加载。
func Templates() *template.Template {
	return template.Must(template.New("pagecart").Parse(pageTemplate + notFoundTemplate))
}
