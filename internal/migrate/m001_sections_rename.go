package migrate

import "github.com/lgctx/lgctx/internal/pipeline"

// m001SectionsRename renames the legacy config.yaml to sections.yaml.
// Grounded on migrations/m001_config_to_sections.py.
type m001SectionsRename struct{}

func (m001SectionsRename) ID() int       { return 1 }
func (m001SectionsRename) Title() string { return "rename lg-cfg/config.yaml to lg-cfg/sections.yaml" }

func (m001SectionsRename) Run(fs *CfgFs, allowSideEffects bool) (bool, error) {
	needed := fs.Exists("config.yaml") && !fs.Exists("sections.yaml")
	if !needed {
		return false, nil
	}
	if !allowSideEffects {
		return false, pipeline.NewUserError(pipeline.KindPreflightRequired,
			"migration #1 requires renaming config.yaml to sections.yaml; run inside a Git repository or set LGCTX_MIGRATE_ALLOW_NO_GIT", nil)
	}
	if err := fs.MoveAtomic("config.yaml", "sections.yaml"); err != nil {
		return false, err
	}
	return true, nil
}

func init() { register(m001SectionsRename{}) }
