package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/playlint/internal/task"
	"github.com/metalagman/playlint/internal/templating"
	"github.com/rs/zerolog/log"
)

var (
	versionPattern  = regexp.MustCompile(`.*-[0-9]+(\.[0-9]+)+`)
	variablePattern = regexp.MustCompile(`.*(\{\{.*\}\}|\*)`)
)

// YumHasVersion flags yum installs that do not pin a package version.
type YumHasVersion struct {
	Metadata
}

// NewYumHasVersion creates the yum version rule.
func NewYumHasVersion() *YumHasVersion {
	return &YumHasVersion{Metadata{
		RuleID: "ANSIBLE1003",
		Short:  "Yum installing package without explicit version",
		Long: "When installing packages be explicit with " +
			"version. This helps create a reproducable " +
			"environment and limits the impact from " +
			"unexpected changes to the system",
		RuleTags: []string{"repeatability"},
	}}
}

type yumParams struct {
	Name  []string `mapstructure:"name"`
	Pkg   []string `mapstructure:"pkg"`
	State string   `mapstructure:"state"`
}

func (r *YumHasVersion) MatchTask(file File, t task.Task) (string, bool) {
	action := t.Action()
	if action.Module() != "yum" {
		return "", false
	}
	var params yumParams
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &params,
	})
	if err != nil {
		return "", false
	}
	if err := decoder.Decode(action.Keywords()); err != nil {
		log.Debug().Err(err).Str("file", file.Path).Msg("yum parameters not decodable")
		return "", false
	}
	switch params.State {
	case "absent", "removed":
		return "", false
	}

	for _, raw := range append(params.Name, params.Pkg...) {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(templating.Render(file.BaseDir, strings.TrimSpace(name), file.Vars))
			if name == "" || versionPattern.MatchString(name) || variablePattern.MatchString(name) {
				continue
			}
			return fmt.Sprintf("Yum package %s should be installed with explicit version", name), true
		}
	}
	return "", false
}
