package envfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"celtrix/internal/config"
	"celtrix/internal/logger"
)

// Kind selects which .env template is written and where.
type Kind string

const (
	Django   Kind = "django"
	React    Kind = "react"
	Node     Kind = "node"
	Firebase Kind = "firebase"
)

// Valid reports whether k is a known kind.
func Valid(k Kind) bool {
	_, ok := templates[k]
	return ok
}

// RelPath is the location of the generated file relative to the project directory.
func RelPath(k Kind) string {
	switch k {
	case Django, Node:
		return filepath.Join("server", ".env")
	default:
		return filepath.Join("client", ".env")
	}
}

var templates = map[Kind]*template.Template{
	Django: template.Must(template.New("django").Parse(`# Django Settings
DEBUG=True
SECRET_KEY={{.SecretKey}}
ALLOWED_HOSTS=localhost,127.0.0.1,.localhost

# Database Configuration (PostgreSQL)
DB_NAME={{.DBName}}
DB_USER={{.DBUser}}
DB_PASSWORD={{.DBPassword}}
DB_HOST={{.DBHost}}
DB_PORT={{.DBPort}}

# CORS Settings
CORS_ALLOWED_ORIGINS=http://localhost:3000,http://localhost:5173

# JWT Settings
JWT_EXPIRATION_DAYS=7
`)),
	React: template.Must(template.New("react").Parse(`# React App Configuration
VITE_API_URL={{.APIURL}}
VITE_APP_NAME={{.AppName}}
VITE_DEBUG=true
`)),
	Node: template.Must(template.New("node").Parse(`# Node.js Server Configuration
NODE_ENV=development
PORT=5000
MONGODB_URI=mongodb://{{.DBHost}}:27017/{{.DBName}}
JWT_SECRET={{.SecretKey}}
JWT_EXPIRES_IN=7d

# CORS Settings
CLIENT_URL=http://localhost:5173
`)),
	Firebase: template.Must(template.New("firebase").Parse(`# Firebase Configuration
VITE_APP_NAME={{.AppName}}
VITE_FIREBASE_API_KEY=your-api-key
VITE_FIREBASE_AUTH_DOMAIN=your-project.firebaseapp.com
VITE_FIREBASE_PROJECT_ID=your-project-id
VITE_FIREBASE_STORAGE_BUCKET=your-project.appspot.com
VITE_FIREBASE_MESSAGING_SENDER_ID=your-sender-id
VITE_FIREBASE_APP_ID=your-app-id
`)),
}

// Defaults fills empty values with placeholders suited to the kinds being
// generated. The API URL points at Django's port when a Django server is generated.
func Defaults(kinds []Kind, projectName string, in config.EnvSettings) config.EnvSettings {
	out := in
	setDefault(&out.SecretKey, "your-secret-key-here")
	setDefault(&out.DBName, projectName+"_db")
	setDefault(&out.DBUser, "your_database_user")
	setDefault(&out.DBPassword, "your_database_password")
	setDefault(&out.DBHost, "localhost")
	setDefault(&out.DBPort, "5432")
	setDefault(&out.AppName, projectName)
	if slices.Contains(kinds, Django) {
		setDefault(&out.APIURL, "http://localhost:8000/api")
	} else {
		setDefault(&out.APIURL, "http://localhost:5000/api")
	}
	return out
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Render returns the .env content for kind. Values are substituted
// literally, without quoting or escaping.
func Render(kind Kind, values config.EnvSettings) (string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown env kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("failed to render %s env: %w", kind, err)
	}
	return buf.String(), nil
}

// Generate writes the .env for kind under projectPath, overwriting any
// existing file. The sub-project directory is created if missing.
func Generate(kind Kind, projectPath string, values config.EnvSettings) (string, error) {
	content, err := Render(kind, values)
	if err != nil {
		return "", err
	}
	path := filepath.Join(projectPath, RelPath(kind))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Debug("[DEBUG] Wrote %s env to %s\n", kind, path)
	return path, nil
}
