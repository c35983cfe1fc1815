package patch

import (
	"bufio"
	"regexp"
	"strings"
)

func init() {
	register("django-settings", djangoSettings)
	register("django-urls", djangoURLs)
	register("django-requirements", djangoRequirements)
	register("django-api", djangoAPI)
	register("django-auth", djangoAuth)
}

var settingsTarget = Target{Dir: "server/backend", Files: []string{"settings.py"}}

var djangoApps = []string{"rest_framework", "rest_framework_simplejwt", "corsheaders", "api", "authentication"}

// Patterns for the generated settings.py. The line patterns are multiline
// anchored; databasesBlock is non-greedy up to the first closing brace at
// column zero, which ends the DATABASES dict.
var (
	secretKeyLine    = regexp.MustCompile(`(?m)^SECRET_KEY = .*$`)
	debugLine        = regexp.MustCompile(`(?m)^DEBUG = .*$`)
	allowedHostsLine = regexp.MustCompile(`(?m)^ALLOWED_HOSTS = .*$`)
	databasesBlock   = regexp.MustCompile(`(?s)DATABASES = \{.*?\n\}`)
)

const postgresDatabases = `DATABASES = {
    'default': {
        'ENGINE': 'django.db.backends.postgresql',
        'NAME': config('DB_NAME'),
        'USER': config('DB_USER'),
        'PASSWORD': config('DB_PASSWORD'),
        'HOST': config('DB_HOST', default='localhost'),
        'PORT': config('DB_PORT', default='5432'),
    }
}`

const corsSettings = `# CORS Settings
CORS_ALLOWED_ORIGINS = config(
    'CORS_ALLOWED_ORIGINS',
    default='http://localhost:3000,http://localhost:5173',
    cast=lambda v: [s.strip() for s in v.split(',')],
)
`

const restFrameworkSettings = `# REST Framework
REST_FRAMEWORK = {
    'DEFAULT_AUTHENTICATION_CLASSES': (
        'rest_framework_simplejwt.authentication.JWTAuthentication',
    ),
    'DEFAULT_PERMISSION_CLASSES': (
        'rest_framework.permissions.IsAuthenticatedOrReadOnly',
    ),
}

from datetime import timedelta

SIMPLE_JWT = {
    'ACCESS_TOKEN_LIFETIME': timedelta(minutes=60),
    'REFRESH_TOKEN_LIFETIME': timedelta(days=config('JWT_EXPIRATION_DAYS', default=7, cast=int)),
    'AUTH_HEADER_TYPES': ('Bearer',),
}
`

func djangoSettings(Params) []Patch {
	return []Patch{
		edit{name: "settings: decouple import", target: settingsTarget, apply: pure(func(c string) string {
			if strings.Contains(c, "from decouple import config") {
				return c
			}
			if strings.Contains(c, "from pathlib import Path") {
				return insertAfter(c, "from pathlib import Path", "\nfrom decouple import config", "from decouple import config")
			}
			return "from decouple import config\n" + c
		})},
		edit{name: "settings: environment values", target: settingsTarget, apply: pure(func(c string) string {
			c = replaceFirst(secretKeyLine, c, "SECRET_KEY = config('SECRET_KEY')")
			c = replaceFirst(debugLine, c, "DEBUG = config('DEBUG', default=False, cast=bool)")
			c = replaceFirst(allowedHostsLine, c,
				"ALLOWED_HOSTS = config('ALLOWED_HOSTS', default='localhost,127.0.0.1', cast=lambda v: [s.strip() for s in v.split(',')])")
			return c
		})},
		edit{name: "settings: installed apps", target: settingsTarget, apply: pure(func(c string) string {
			return appendToList(c, "INSTALLED_APPS = [", djangoApps)
		})},
		edit{name: "settings: cors middleware", target: settingsTarget, apply: pure(func(c string) string {
			return insertAfter(c, "MIDDLEWARE = [", "\n    'corsheaders.middleware.CorsMiddleware',", "CorsMiddleware")
		})},
		edit{name: "settings: postgres database", target: settingsTarget, apply: pure(func(c string) string {
			return replaceFirst(databasesBlock, c, postgresDatabases)
		})},
		edit{name: "settings: cors and rest framework", target: settingsTarget, apply: pure(func(c string) string {
			c = appendBlock(c, "CORS_ALLOWED_ORIGINS", corsSettings)
			return appendBlock(c, "REST_FRAMEWORK", restFrameworkSettings)
		})},
	}
}

// appendToList adds the quoted items missing from the Python list opened by
// header, just before its closing bracket line.
func appendToList(content, header string, items []string) string {
	start := strings.Index(content, header)
	if start < 0 {
		return content
	}
	end := strings.Index(content[start:], "\n]")
	if end < 0 {
		return content
	}
	// end now points at the closing bracket line.
	end += start + 1
	block := content[start:end]

	var add strings.Builder
	for _, item := range items {
		if strings.Contains(block, "'"+item+"'") || strings.Contains(block, `"`+item+`"`) {
			continue
		}
		add.WriteString("    '" + item + "',\n")
	}
	if add.Len() == 0 {
		return content
	}
	return content[:end] + add.String() + content[end:]
}

func djangoURLs(Params) []Patch {
	target := Target{Dir: "server/backend", Files: []string{"urls.py"}}
	return []Patch{
		edit{name: "urls: include import", target: target, apply: pure(func(c string) string {
			if strings.Contains(c, "from django.urls import include, path") {
				return c
			}
			return strings.Replace(c, "from django.urls import path", "from django.urls import include, path", 1)
		})},
		edit{name: "urls: api routes", target: target, apply: pure(func(c string) string {
			return insertAfter(c, "urlpatterns = [",
				"\n    path('api/', include('api.urls')),\n    path('api/auth/', include('authentication.urls')),",
				"include('api.urls')")
		})},
	}
}

var requirements = []string{
	"Django>=4.2,<5.0",
	"djangorestframework>=3.14.0",
	"django-cors-headers>=4.0.0",
	"djangorestframework-simplejwt>=5.3.0",
	"psycopg2-binary>=2.9.0",
	"python-decouple>=3.8",
}

func djangoRequirements(Params) []Patch {
	target := Target{Dir: "server", Files: []string{"requirements.txt"}, Create: true}
	return []Patch{
		edit{name: "requirements.txt", target: target, apply: pure(func(c string) string {
			return mergeRequirements(c, requirements)
		})},
	}
}

// mergeRequirements appends the requirement lines whose distribution name is
// not listed yet. Names compare case-insensitively.
func mergeRequirements(content string, reqs []string) string {
	have := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		if name := requirementName(sc.Text()); name != "" {
			have[name] = true
		}
	}

	out := content
	for _, r := range reqs {
		if have[requirementName(r)] {
			continue
		}
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += r + "\n"
	}
	return out
}

func requirementName(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
		return ""
	}
	// The name ends at a version specifier, extras, a marker or a space.
	if i := strings.IndexAny(line, "<>=!~[; "); i >= 0 {
		line = line[:i]
	}
	return strings.ToLower(line)
}

func djangoAPI(Params) []Patch {
	dir := "server/api"
	return []Patch{
		edit{name: "api: models", target: Target{Dir: dir, Files: []string{"models.py"}, Create: true}, apply: replaceWith(apiModels)},
		edit{name: "api: serializers", target: Target{Dir: dir, Files: []string{"serializers.py"}, Create: true}, apply: replaceWith(apiSerializers)},
		edit{name: "api: views", target: Target{Dir: dir, Files: []string{"views.py"}, Create: true}, apply: replaceWith(apiViews)},
		edit{name: "api: urls", target: Target{Dir: dir, Files: []string{"urls.py"}, Create: true}, apply: replaceWith(apiURLs)},
	}
}

func djangoAuth(Params) []Patch {
	dir := "server/authentication"
	return []Patch{
		edit{name: "auth: serializers", target: Target{Dir: dir, Files: []string{"serializers.py"}, Create: true}, apply: replaceWith(authSerializers)},
		edit{name: "auth: views", target: Target{Dir: dir, Files: []string{"views.py"}, Create: true}, apply: replaceWith(authViews)},
		edit{name: "auth: urls", target: Target{Dir: dir, Files: []string{"urls.py"}, Create: true}, apply: replaceWith(authURLs)},
	}
}

const apiModels = `from django.db import models


class Example(models.Model):
    name = models.CharField(max_length=100)
    description = models.TextField(blank=True, null=True)
    created_at = models.DateTimeField(auto_now_add=True)
    updated_at = models.DateTimeField(auto_now=True)

    class Meta:
        ordering = ['-created_at']

    def __str__(self):
        return self.name
`

const apiSerializers = `from rest_framework import serializers

from .models import Example


class ExampleSerializer(serializers.ModelSerializer):
    class Meta:
        model = Example
        fields = ['id', 'name', 'description', 'created_at', 'updated_at']
        read_only_fields = ['id', 'created_at', 'updated_at']
`

const apiViews = `from rest_framework import status, viewsets
from rest_framework.decorators import api_view, permission_classes
from rest_framework.permissions import AllowAny
from rest_framework.response import Response

from .models import Example
from .serializers import ExampleSerializer


@api_view(['GET'])
@permission_classes([AllowAny])
def health_check(request):
    return Response({'status': 'ok', 'message': 'API is running'}, status=status.HTTP_200_OK)


class ExampleViewSet(viewsets.ModelViewSet):
    queryset = Example.objects.all()
    serializer_class = ExampleSerializer
`

const apiURLs = `from django.urls import include, path
from rest_framework.routers import DefaultRouter

from . import views

router = DefaultRouter()
router.register(r'examples', views.ExampleViewSet)

urlpatterns = [
    path('', include(router.urls)),
    path('health/', views.health_check, name='health-check'),
]
`

const authSerializers = `from django.contrib.auth.models import User
from django.contrib.auth.password_validation import validate_password
from rest_framework import serializers


class UserSerializer(serializers.ModelSerializer):
    class Meta:
        model = User
        fields = ('id', 'username', 'email', 'first_name', 'last_name')


class RegisterSerializer(serializers.ModelSerializer):
    password = serializers.CharField(write_only=True, required=True, validators=[validate_password])
    password2 = serializers.CharField(write_only=True, required=True)

    class Meta:
        model = User
        fields = ('username', 'password', 'password2', 'email', 'first_name', 'last_name')

    def validate(self, attrs):
        if attrs['password'] != attrs['password2']:
            raise serializers.ValidationError({'password': "Password fields didn't match."})
        return attrs

    def create(self, validated_data):
        validated_data.pop('password2')
        return User.objects.create_user(**validated_data)
`

const authViews = `from django.contrib.auth.models import User
from rest_framework import generics
from rest_framework.permissions import AllowAny, IsAuthenticated

from .serializers import RegisterSerializer, UserSerializer


class RegisterView(generics.CreateAPIView):
    queryset = User.objects.all()
    permission_classes = (AllowAny,)
    serializer_class = RegisterSerializer


class UserProfileView(generics.RetrieveAPIView):
    permission_classes = (IsAuthenticated,)
    serializer_class = UserSerializer

    def get_object(self):
        return self.request.user
`

const authURLs = `from django.urls import path
from rest_framework_simplejwt.views import TokenObtainPairView, TokenRefreshView

from .views import RegisterView, UserProfileView

urlpatterns = [
    path('register/', RegisterView.as_view(), name='register'),
    path('login/', TokenObtainPairView.as_view(), name='token_obtain_pair'),
    path('token/refresh/', TokenRefreshView.as_view(), name='token_refresh'),
    path('profile/', UserProfileView.as_view(), name='user-profile'),
]
`
