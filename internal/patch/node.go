package patch

import (
	"fmt"
	"regexp"
	"strings"
)

func init() {
	register("package-name", packageName)
	register("express-entry", expressEntry)
	register("hono-entry", honoEntry)
	register("react-api-service", reactAPIService)
	register("firebase-config", firebaseConfig)
}

var (
	nameField  = regexp.MustCompile(`"name"\s*:\s*"[^"]*"`)
	moduleType = regexp.MustCompile(`(?m)^  "type"\s*:\s*"[^"]*"`)
)

// npmName lowercases name, which npm requires of package names.
func npmName(name string) string {
	return strings.ToLower(name)
}

func packageName(p Params) []Patch {
	rename := func(dir, value string) Patch {
		return edit{
			name:   dir + "/package.json: name",
			target: Target{Dir: dir, Files: []string{"package.json"}},
			apply: pure(func(c string) string {
				return replaceFirst(nameField, c, fmt.Sprintf(`"name": %q`, value))
			}),
		}
	}
	base := npmName(p.ProjectName)
	return []Patch{
		rename("server", base+"-server"),
		rename("client", base+"-client"),
		rename("t3-app", base),
	}
}

type script struct{ name, command string }

// addScripts adds the npm scripts not already defined to a package.json,
// keeping the rest of the file as written.
func addScripts(content string, scripts []script) string {
	return addEntries(content, "scripts", scripts)
}

// addEntries adds string members to the top-level object key of a
// package.json, creating the object when it is missing. Members whose name
// already appears in the file are left alone.
func addEntries(content, key string, members []script) string {
	var entries []string
	for _, s := range members {
		if strings.Contains(content, fmt.Sprintf("%q:", s.name)) {
			continue
		}
		entries = append(entries, fmt.Sprintf("    %q: %q", s.name, s.command))
	}
	if len(entries) == 0 {
		return content
	}

	quoted := regexp.QuoteMeta(key)
	empty := regexp.MustCompile(`"` + quoted + `"\s*:\s*\{\s*\}`)
	open := regexp.MustCompile(`"` + quoted + `"\s*:\s*\{`)

	// "key": {} is rewritten as a whole so the closing brace stays on its own line.
	if loc := empty.FindStringIndex(content); loc != nil {
		return content[:loc[0]] + fmt.Sprintf("%q: {\n", key) + strings.Join(entries, ",\n") + "\n  }" + content[loc[1]:]
	}
	// Existing members follow the new ones, so a trailing comma is always valid.
	if loc := open.FindStringIndex(content); loc != nil {
		return content[:loc[1]] + "\n" + strings.Join(entries, ",\n") + "," + content[loc[1]:]
	}
	// No such key: open a new object right after the document's first brace.
	i := strings.Index(content, "{")
	if i < 0 {
		return content
	}
	block := fmt.Sprintf("\n  %q: {\n", key) + strings.Join(entries, ",\n") + "\n  }"
	if strings.TrimSpace(content[i+1:]) != "}" {
		block += ","
	}
	return content[:i+1] + block + content[i+1:]
}

// setModuleType marks a package.json as an ES module package.
func setModuleType(content string) string {
	if moduleType.MatchString(content) {
		return replaceFirst(moduleType, content, `  "type": "module"`)
	}
	return insertAfter(content, "{", "\n  \"type\": \"module\",", `"type": "module"`)
}

func serverPackage(start, dev string) Patch {
	return edit{
		name:   "server/package.json",
		target: Target{Dir: "server", Files: []string{"package.json"}},
		apply: pure(func(c string) string {
			c = setModuleType(c)
			return addScripts(c, []script{{"start", start}, {"dev", dev}})
		}),
	}
}

func expressEntry(p Params) []Patch {
	if p.TypeScript() {
		return []Patch{
			edit{name: "server.ts", target: Target{Dir: "server", Files: []string{"server.ts"}, Create: true}, apply: writeOnce(expressTS)},
			serverPackage("tsx server.ts", "tsx watch server.ts"),
		}
	}
	return []Patch{
		edit{name: "server.js", target: Target{Dir: "server", Files: []string{"server.js"}, Create: true}, apply: writeOnce(expressJS)},
		serverPackage("node server.js", "node --watch server.js"),
	}
}

func honoEntry(p Params) []Patch {
	if p.TypeScript() {
		return []Patch{
			edit{name: "src/index.ts", target: Target{Dir: "server/src", Files: []string{"index.ts"}, Create: true, Anchor: "server"}, apply: writeOnce(honoServer)},
			serverPackage("tsx src/index.ts", "tsx watch src/index.ts"),
		}
	}
	return []Patch{
		edit{name: "src/index.js", target: Target{Dir: "server/src", Files: []string{"index.js"}, Create: true, Anchor: "server"}, apply: writeOnce(honoServer)},
		serverPackage("node src/index.js", "node --watch src/index.js"),
	}
}

func sourceFile(p Params, base string) string {
	if p.TypeScript() {
		return base + ".ts"
	}
	return base + ".js"
}

func reactAPIService(p Params) []Patch {
	apiURL := p.Env.APIURL
	if apiURL == "" && p.BackendOrigin != "" {
		apiURL = p.BackendOrigin + "/api"
	}
	body := apiServiceJS
	if p.TypeScript() {
		body = apiServiceTS
	}
	target := Target{Dir: "client/src/services", Files: []string{sourceFile(p, "api")}, Create: true, Anchor: "client/src"}
	return []Patch{
		edit{name: "services/" + target.Files[0], target: target, apply: writeOnce(strings.ReplaceAll(body, "__API_URL__", apiURL))},
	}
}

func firebaseConfig(p Params) []Patch {
	target := Target{Dir: "client/src", Files: []string{sourceFile(p, "firebase")}, Create: true}
	return []Patch{
		edit{name: target.Files[0], target: target, apply: writeOnce(firebaseModule)},
	}
}

const expressJS = `import express from 'express';
import mongoose from 'mongoose';
import cors from 'cors';
import 'dotenv/config';

const app = express();
const PORT = process.env.PORT || 5000;

app.use(cors({ origin: process.env.CLIENT_URL || 'http://localhost:5173' }));
app.use(express.json());

app.get('/api/health', (req, res) => {
  res.json({ status: 'ok', message: 'API is running' });
});

mongoose
  .connect(process.env.MONGODB_URI)
  .then(() => console.log('Connected to MongoDB'))
  .catch((err) => console.error('MongoDB connection error:', err.message));

app.listen(PORT, () => {
  console.log(` + "`Server running on http://localhost:${PORT}`" + `);
});
`

const expressTS = `import express, { Request, Response } from 'express';
import mongoose from 'mongoose';
import cors from 'cors';
import 'dotenv/config';

const app = express();
const PORT = Number(process.env.PORT) || 5000;

app.use(cors({ origin: process.env.CLIENT_URL || 'http://localhost:5173' }));
app.use(express.json());

app.get('/api/health', (_req: Request, res: Response) => {
  res.json({ status: 'ok', message: 'API is running' });
});

mongoose
  .connect(process.env.MONGODB_URI ?? '')
  .then(() => console.log('Connected to MongoDB'))
  .catch((err: Error) => console.error('MongoDB connection error:', err.message));

app.listen(PORT, () => {
  console.log(` + "`Server running on http://localhost:${PORT}`" + `);
});
`

const honoServer = `import { serve } from '@hono/node-server';
import { Hono } from 'hono';

const app = new Hono();

app.get('/api/health', (c) => c.json({ status: 'ok', message: 'API is running' }));

const port = Number(process.env.PORT) || 5000;
serve({ fetch: app.fetch, port }, (info) => {
  console.log(` + "`Server running on http://localhost:${info.port}`" + `);
});
`

const apiServiceJS = `import axios from 'axios';

const API_BASE_URL = import.meta.env.VITE_API_URL || '__API_URL__';

const api = axios.create({
  baseURL: API_BASE_URL,
  headers: {
    'Content-Type': 'application/json',
  },
});

api.interceptors.request.use((config) => {
  const token = localStorage.getItem('access_token');
  if (token) {
    config.headers.Authorization = ` + "`Bearer ${token}`" + `;
  }
  return config;
});

api.interceptors.response.use(
  (response) => response,
  async (error) => {
    const original = error.config;
    if (error.response?.status === 401 && !original._retry) {
      original._retry = true;
      try {
        const refresh = localStorage.getItem('refresh_token');
        const { data } = await axios.post(` + "`${API_BASE_URL}/auth/token/refresh/`" + `, { refresh });
        localStorage.setItem('access_token', data.access);
        original.headers.Authorization = ` + "`Bearer ${data.access}`" + `;
        return api(original);
      } catch (refreshError) {
        localStorage.removeItem('access_token');
        localStorage.removeItem('refresh_token');
        window.location.href = '/login';
        return Promise.reject(refreshError);
      }
    }
    return Promise.reject(error);
  },
);

export default api;
`

const apiServiceTS = `import axios, { AxiosError, InternalAxiosRequestConfig } from 'axios';

type RetryConfig = InternalAxiosRequestConfig & { _retry?: boolean };

const API_BASE_URL: string = import.meta.env.VITE_API_URL || '__API_URL__';

const api = axios.create({
  baseURL: API_BASE_URL,
  headers: {
    'Content-Type': 'application/json',
  },
});

api.interceptors.request.use((config) => {
  const token = localStorage.getItem('access_token');
  if (token) {
    config.headers.Authorization = ` + "`Bearer ${token}`" + `;
  }
  return config;
});

api.interceptors.response.use(
  (response) => response,
  async (error: AxiosError) => {
    const original = error.config as RetryConfig | undefined;
    if (original && error.response?.status === 401 && !original._retry) {
      original._retry = true;
      try {
        const refresh = localStorage.getItem('refresh_token');
        const { data } = await axios.post<{ access: string }>(` + "`${API_BASE_URL}/auth/token/refresh/`" + `, { refresh });
        localStorage.setItem('access_token', data.access);
        original.headers.Authorization = ` + "`Bearer ${data.access}`" + `;
        return api(original);
      } catch (refreshError) {
        localStorage.removeItem('access_token');
        localStorage.removeItem('refresh_token');
        window.location.href = '/login';
        return Promise.reject(refreshError);
      }
    }
    return Promise.reject(error);
  },
);

export default api;
`

const firebaseModule = `import { initializeApp } from 'firebase/app';
import { getAuth } from 'firebase/auth';
import { getFirestore } from 'firebase/firestore';

const firebaseConfig = {
  apiKey: import.meta.env.VITE_FIREBASE_API_KEY,
  authDomain: import.meta.env.VITE_FIREBASE_AUTH_DOMAIN,
  projectId: import.meta.env.VITE_FIREBASE_PROJECT_ID,
  storageBucket: import.meta.env.VITE_FIREBASE_STORAGE_BUCKET,
  messagingSenderId: import.meta.env.VITE_FIREBASE_MESSAGING_SENDER_ID,
  appId: import.meta.env.VITE_FIREBASE_APP_ID,
};

export const app = initializeApp(firebaseConfig);
export const auth = getAuth(app);
export const db = getFirestore(app);
`
